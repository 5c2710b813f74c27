package gattbrowser

import "fmt"

// Advertising report event types [Vol 2, Part E, 7.7.65.2].
const (
	EvtTypeAdvInd        uint8 = 0x00
	EvtTypeAdvDirectInd  uint8 = 0x01
	EvtTypeAdvScanInd    uint8 = 0x02
	EvtTypeAdvNonconnInd uint8 = 0x03
	EvtTypeScanRsp       uint8 = 0x04
)

// Advertisement is a single advertising report as delivered by the scanner.
// Data is the raw AD structure payload.
type Advertisement struct {
	EventType uint8
	Addr      Addr
	RSSI      int8
	Data      []byte
}

func (a Advertisement) String() string {
	return fmt.Sprintf("evt-type %d, addr-type %d, addr %s, rssi %d, length adv %d",
		a.EventType, a.Addr.Type, a.Addr, a.RSSI, len(a.Data))
}
