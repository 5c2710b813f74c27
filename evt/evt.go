// Package evt defines the events a transport delivers to the browser.
package evt

import (
	"fmt"

	"github.com/rigado/gattbrowser"
)

// Code identifies the kind of an Event.
type Code int

const (
	LinkReadyCode Code = iota + 1
	ScanReportCode
	ConnectionCompleteCode
	DisconnectionCompleteCode
	ServiceQueryResultCode
	CharacteristicQueryResultCode
	QueryCompleteCode
)

var codeNames = map[Code]string{
	LinkReadyCode:                 "link-ready",
	ScanReportCode:                "scan-report",
	ConnectionCompleteCode:        "connection-complete",
	DisconnectionCompleteCode:     "disconnection-complete",
	ServiceQueryResultCode:        "service-query-result",
	CharacteristicQueryResultCode: "characteristic-query-result",
	QueryCompleteCode:             "query-complete",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", int(c))
}

// Event is anything a transport can deliver.
type Event interface {
	Code() Code
	String() string
}

// LinkReady is delivered once the local controller is powered and usable.
type LinkReady struct{}

func (LinkReady) Code() Code     { return LinkReadyCode }
func (LinkReady) String() string { return "link-ready" }

// ScanReport carries one advertising report.
type ScanReport struct {
	gattbrowser.Advertisement
}

func (ScanReport) Code() Code { return ScanReportCode }
func (e ScanReport) String() string {
	return fmt.Sprintf("scan-report: %s", e.Advertisement)
}

// ConnectionComplete ends a connect request. A non-zero Status means no link
// was established and Handle is meaningless.
type ConnectionComplete struct {
	Status uint8
	Handle uint16
	Peer   gattbrowser.Addr
}

func (ConnectionComplete) Code() Code { return ConnectionCompleteCode }
func (e ConnectionComplete) String() string {
	return fmt.Sprintf("connection-complete: status 0x%02x, handle 0x%04x, peer %s", e.Status, e.Handle, e.Peer)
}

// DisconnectionComplete reports that the link identified by Handle is gone.
type DisconnectionComplete struct {
	Handle uint16
	Reason uint8
}

func (DisconnectionComplete) Code() Code { return DisconnectionCompleteCode }
func (e DisconnectionComplete) String() string {
	return fmt.Sprintf("disconnection-complete: handle 0x%04x, reason 0x%02x", e.Handle, e.Reason)
}

// ServiceQueryResult carries one primary service.
type ServiceQueryResult struct {
	Handle  uint16
	Service gattbrowser.Service
}

func (ServiceQueryResult) Code() Code { return ServiceQueryResultCode }
func (e ServiceQueryResult) String() string {
	return fmt.Sprintf("service-query-result: handle 0x%04x, service %s", e.Handle, e.Service)
}

// CharacteristicQueryResult carries one characteristic declaration.
type CharacteristicQueryResult struct {
	Handle         uint16
	Characteristic gattbrowser.Characteristic
}

func (CharacteristicQueryResult) Code() Code { return CharacteristicQueryResultCode }
func (e CharacteristicQueryResult) String() string {
	return fmt.Sprintf("characteristic-query-result: handle 0x%04x, characteristic %s", e.Handle, e.Characteristic)
}

// QueryComplete ends a discovery request, whatever number of results
// preceded it. A non-zero Status is an ATT error code.
type QueryComplete struct {
	Handle uint16
	Status uint8
}

func (QueryComplete) Code() Code { return QueryCompleteCode }
func (e QueryComplete) String() string {
	return fmt.Sprintf("query-complete: handle 0x%04x, status 0x%02x", e.Handle, e.Status)
}
