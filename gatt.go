package gattbrowser

import "fmt"

// Property is the characteristic properties bitmask.
type Property uint8

// Characteristic property flags [Vol 3, Part G, 3.3.1.1].
const (
	CharBroadcast   Property = 0x01
	CharRead        Property = 0x02
	CharWriteNR     Property = 0x04
	CharWrite       Property = 0x08
	CharNotify      Property = 0x10
	CharIndicate    Property = 0x20
	CharSignedWrite Property = 0x40
	CharExtended    Property = 0x80
)

var propNames = []struct {
	p Property
	s string
}{
	{CharBroadcast, "B"},
	{CharRead, "R"},
	{CharWriteNR, "w"},
	{CharWrite, "W"},
	{CharNotify, "N"},
	{CharIndicate, "I"},
	{CharSignedWrite, "S"},
	{CharExtended, "E"},
}

// String returns one letter per set flag, e.g. "RWN".
func (p Property) String() string {
	var s string
	for _, n := range propNames {
		if p&n.p != 0 {
			s += n.s
		}
	}
	return s
}

// ParseProperty is the inverse of Property.String.
func ParseProperty(s string) (Property, error) {
	var p Property
next:
	for _, r := range s {
		for _, n := range propNames {
			if string(r) == n.s {
				p |= n.p
				continue next
			}
		}
		return 0, fmt.Errorf("unknown property flag %q", r)
	}
	return p, nil
}

// Service is a primary service found by service discovery.
type Service struct {
	StartHandle uint16 `json:"startHandle"`
	EndHandle   uint16 `json:"endHandle"`
	UUID        UUID   `json:"uuid"`
}

func (s Service) String() string {
	return fmt.Sprintf("[0x%04x-0x%04x] %s", s.StartHandle, s.EndHandle, s.UUID)
}

// Characteristic is a characteristic declaration found within a service.
type Characteristic struct {
	DeclarationHandle uint16   `json:"handle"`
	ValueHandle       uint16   `json:"valueHandle"`
	EndHandle         uint16   `json:"endHandle"`
	Properties        Property `json:"properties"`
	UUID              UUID     `json:"uuid"`
}

func (c Characteristic) String() string {
	return fmt.Sprintf("[0x%04x-0x%04x-0x%04x] %s (%s)",
		c.DeclarationHandle, c.ValueHandle, c.EndHandle, c.UUID, c.Properties)
}
