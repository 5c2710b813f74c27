// Package adv crafts and reads advertising packets and scan responses.
// Refer to Supplement to Bluetooth Core Specification | CSSv9, Part A.
package adv

import (
	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
	"github.com/rigado/gattbrowser/parser"
)

// MaxEIRPacketLength is the maximum allowed AdvertisingPacket
// and ScanResponsePacket length.
const MaxEIRPacketLength = 31

// Flags values.
const (
	FlagLimitedDiscoverable = 0x01
	FlagGeneralDiscoverable = 0x02
	FlagLEOnly              = 0x04
)

var (
	ErrNotFit  = errors.New("field does not fit in the packet")
	ErrInvalid = errors.New("invalid field")
)

// Packet is an advertising packet or scan response.
type Packet struct {
	b []byte
	m map[string]interface{}
}

// Bytes returns the bytes of the packet.
func (p *Packet) Bytes() []byte {
	return p.b
}

// Len returns the length of the packet.
func (p *Packet) Len() int {
	return len(p.b)
}

// NewPacket returns a new advertising Packet built from fields.
func NewPacket(fields ...Field) (*Packet, error) {
	p := &Packet{b: make([]byte, 0, MaxEIRPacketLength)}
	for _, f := range fields {
		if err := f(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewRawPacket decodes the concatenation of bytes, typically an
// advertisement and its scan response. The packet is returned even on error,
// with the fields that precede the malformed one.
func NewRawPacket(bytes ...[]byte) (*Packet, error) {
	var b []byte
	for _, bb := range bytes {
		b = append(b, bb...)
	}

	m, err := parser.Parse(b)
	p := &Packet{b: b, m: m}
	if err != nil {
		return p, errors.Wrap(err, "pdu decode")
	}
	return p, nil
}

// Field is an advertising field which can be appended to a packet.
type Field func(p *Packet) error

// Append appends a field to the packet. It returns ErrNotFit if the field
// doesn't fit into the packet, and leaves the packet intact.
func (p *Packet) Append(f Field) error {
	return f(p)
}

func (p *Packet) append(typ byte, b []byte) error {
	if p.Len()+1+1+len(b) > MaxEIRPacketLength {
		return ErrNotFit
	}
	p.b = append(p.b, byte(len(b)+1), typ)
	p.b = append(p.b, b...)
	return nil
}

// Flags is a flags.
func Flags(f byte) Field {
	return func(p *Packet) error {
		return p.append(parser.TypeFlags, []byte{f})
	}
}

// ShortName is a short local name.
func ShortName(n string) Field {
	return func(p *Packet) error {
		return p.append(parser.TypeNameShort, []byte(n))
	}
}

// CompleteName is a complete local name.
func CompleteName(n string) Field {
	return func(p *Packet) error {
		return p.append(parser.TypeNameComp, []byte(n))
	}
}

// Name is the complete local name if it fits, the longest short name
// that does otherwise.
func Name(n string) Field {
	return func(p *Packet) error {
		room := MaxEIRPacketLength - p.Len() - 2
		if room <= 0 {
			return ErrNotFit
		}
		if len(n) <= room {
			return CompleteName(n)(p)
		}
		return ShortName(n[:room])(p)
	}
}

// TxPower is the transmit power level in dBm.
func TxPower(dbm int8) Field {
	return func(p *Packet) error {
		return p.append(parser.TypeTxPower, []byte{byte(dbm)})
	}
}

// ManufacturerData is manufacturer specific data.
func ManufacturerData(id uint16, b []byte) Field {
	return func(p *Packet) error {
		d := append([]byte{uint8(id), uint8(id >> 8)}, b...)
		return p.append(parser.TypeMfgData, d)
	}
}

// AllUUID is the complete service UUID list. All uuids must have the same
// length.
func AllUUID(uu ...gattbrowser.UUID) Field {
	return func(p *Packet) error {
		return p.uuidList(parser.TypeUUID16Comp, parser.TypeUUID128Comp, uu)
	}
}

// SomeUUID is an incomplete service UUID list.
func SomeUUID(uu ...gattbrowser.UUID) Field {
	return func(p *Packet) error {
		return p.uuidList(parser.TypeUUID16Inc, parser.TypeUUID128Inc, uu)
	}
}

func (p *Packet) uuidList(typ16, typ128 byte, uu []gattbrowser.UUID) error {
	if len(uu) == 0 {
		return ErrInvalid
	}
	typ := typ128
	if uu[0].Len() == 2 {
		typ = typ16
	}

	var b []byte
	for _, u := range uu {
		if u.Len() != uu[0].Len() {
			return ErrInvalid
		}
		b = append(b, u.Bytes()...)
	}
	return p.append(typ, b)
}

// Flags returns the flags of the packet.
func (p *Packet) Flags() (flags byte, present bool) {
	if b, ok := p.m[parser.KeyFlags].([]byte); ok && len(b) > 0 {
		return b[0], true
	}
	return 0, false
}

// LocalName returns the ShortName or CompleteName if it presents.
func (p *Packet) LocalName() string {
	return parser.LocalName(p.m)
}

// TxPower returns the TxPower, if it presents.
func (p *Packet) TxPower() (power int, present bool) {
	if b, ok := p.m[parser.KeyTxPower].([]byte); ok && len(b) > 0 {
		return int(int8(b[0])), true
	}
	return 0, false
}

// UUIDs returns the advertised service UUIDs, complete or not.
func (p *Packet) UUIDs() []gattbrowser.UUID {
	u, _ := p.m[parser.KeyServices].([]gattbrowser.UUID)
	return u
}

// ManufacturerData returns the ManufacturerData field if it presents.
func (p *Packet) ManufacturerData() []byte {
	v, _ := p.m[parser.KeyMfgData].([]byte)
	return v
}
