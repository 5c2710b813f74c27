// Package dump prints what a browser run observes in a human-readable form.
package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/rigado/gattbrowser"
	"github.com/rigado/gattbrowser/adv"
)

// Printer is a gattbrowser.Reporter writing one line per observation.
type Printer struct {
	w   io.Writer
	err error
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Err returns the first write error, if any.
func (p *Printer) Err() error { return p.err }

func (p *Printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) Advertisement(a gattbrowser.Advertisement) {
	p.printf("    * adv. event: evt-type %d, addr-type %d, addr %s, rssi %d, length adv %d, data: %s\n",
		a.EventType, a.Addr.Type, strings.ToUpper(a.Addr.String()), a.RSSI, len(a.Data), hexdump(a.Data))

	if len(a.Data) == 0 {
		return
	}
	// a malformed tail still leaves the fields before it
	pkt, _ := adv.NewRawPacket(a.Data)
	if f, ok := pkt.Flags(); ok {
		p.printf("      flags: 0x%02x\n", f)
	}
	if n := pkt.LocalName(); n != "" {
		p.printf("      name: %q\n", n)
	}
	if uu := pkt.UUIDs(); len(uu) > 0 {
		p.printf("      services: %s\n", joinUUIDs(uu))
	}
	if pw, ok := pkt.TxPower(); ok {
		p.printf("      tx power: %d dBm\n", pw)
	}
	if md := pkt.ManufacturerData(); len(md) >= 2 {
		p.printf("      manufacturer: 0x%04x, data: %s\n", uint16(md[0])|uint16(md[1])<<8, hexdump(md[2:]))
	}
}

func (p *Printer) Service(s gattbrowser.Service) {
	p.printf("    * service: [0x%04x-0x%04x], uuid %s\n", s.StartHandle, s.EndHandle, s.UUID)
}

func (p *Printer) CharacteristicsOf(s gattbrowser.Service) {
	p.printf("\nGATT browser - CHARACTERISTIC for SERVICE %s, [0x%04x-0x%04x]\n",
		long(s.UUID), s.StartHandle, s.EndHandle)
}

func (p *Printer) Characteristic(c gattbrowser.Characteristic) {
	p.printf("    * characteristic: [0x%04x-0x%04x-0x%04x], properties 0x%02x, uuid %s\n",
		c.DeclarationHandle, c.ValueHandle, c.EndHandle, uint8(c.Properties), c.UUID)
}

func (p *Printer) Disconnected(gattbrowser.Connection, uint8) {
	p.printf("\nGATT browser - DISCONNECTED\n")
}

func long(u gattbrowser.UUID) string {
	return strings.ToUpper(u.Full().String())
}

func joinUUIDs(uu []gattbrowser.UUID) string {
	ss := make([]string, len(uu))
	for i, u := range uu {
		ss[i] = u.String()
	}
	return strings.Join(ss, " ")
}

func hexdump(b []byte) string {
	var sb strings.Builder
	for _, v := range b {
		fmt.Fprintf(&sb, "%02X ", v)
	}
	return sb.String()
}
