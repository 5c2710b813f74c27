// Package cmd defines the requests the browser hands to its transport.
package cmd

import (
	"fmt"

	"github.com/rigado/gattbrowser"
)

// OpCode identifies the kind of a Command.
type OpCode int

const (
	SetScanParametersOp OpCode = iota + 1
	StartScanOp
	StopScanOp
	ConnectOp
	DisconnectOp
	DiscoverPrimaryServicesOp
	DiscoverCharacteristicsOp
)

var opNames = map[OpCode]string{
	SetScanParametersOp:       "set-scan-parameters",
	StartScanOp:               "start-scan",
	StopScanOp:                "stop-scan",
	ConnectOp:                 "connect",
	DisconnectOp:              "disconnect",
	DiscoverPrimaryServicesOp: "discover-primary-services",
	DiscoverCharacteristicsOp: "discover-characteristics-for-service",
}

func (o OpCode) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("command(%d)", int(o))
}

// Command is a request for the transport.
type Command interface {
	OpCode() OpCode
	String() string
}

// SetScanParameters configures the scanner before StartScan.
type SetScanParameters struct {
	gattbrowser.ScanParams
}

func (SetScanParameters) OpCode() OpCode { return SetScanParametersOp }
func (c SetScanParameters) String() string {
	return fmt.Sprintf("set-scan-parameters: type %d, interval 0x%04x, window 0x%04x", c.Type, c.Interval, c.Window)
}

// StartScan enables scanning.
type StartScan struct {
	FilterDuplicates bool
}

func (StartScan) OpCode() OpCode { return StartScanOp }
func (c StartScan) String() string {
	return fmt.Sprintf("start-scan: filter duplicates %v", c.FilterDuplicates)
}

// StopScan disables scanning.
type StopScan struct{}

func (StopScan) OpCode() OpCode { return StopScanOp }
func (StopScan) String() string { return "stop-scan" }

// Connect asks for a link to Peer, using Peer.Type as the peer address type.
type Connect struct {
	Peer gattbrowser.Addr
}

func (Connect) OpCode() OpCode { return ConnectOp }
func (c Connect) String() string {
	return fmt.Sprintf("connect: %s (%s)", c.Peer, c.Peer.Type)
}

// Disconnect terminates the link identified by Handle.
type Disconnect struct {
	Handle uint16
	Reason uint8
}

func (Disconnect) OpCode() OpCode { return DisconnectOp }
func (c Disconnect) String() string {
	return fmt.Sprintf("disconnect: handle 0x%04x, reason 0x%02x", c.Handle, c.Reason)
}

// DiscoverPrimaryServices enumerates every primary service of the peer.
type DiscoverPrimaryServices struct {
	Handle uint16
}

func (DiscoverPrimaryServices) OpCode() OpCode { return DiscoverPrimaryServicesOp }
func (c DiscoverPrimaryServices) String() string {
	return fmt.Sprintf("discover-primary-services: handle 0x%04x", c.Handle)
}

// DiscoverCharacteristics enumerates the characteristics within Service's
// handle range.
type DiscoverCharacteristics struct {
	Handle  uint16
	Service gattbrowser.Service
}

func (DiscoverCharacteristics) OpCode() OpCode { return DiscoverCharacteristicsOp }
func (c DiscoverCharacteristics) String() string {
	return fmt.Sprintf("discover-characteristics-for-service: handle 0x%04x, service %s", c.Handle, c.Service)
}
