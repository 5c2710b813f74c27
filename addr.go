package gattbrowser

import (
	"fmt"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidAddr is returned when an address string is not a 6 byte MAC.
var ErrInvalidAddr = errors.New("invalid device address")

// AddrType tags an address as public or random.
type AddrType uint8

// Address types, as carried in LE advertising reports and LE Create Connection.
const (
	AddrPublic AddrType = 0x00
	AddrRandom AddrType = 0x01
)

func (t AddrType) String() string {
	switch t {
	case AddrPublic:
		return "public"
	case AddrRandom:
		return "random"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Addr is a device address. MAC holds the address in display order,
// most significant byte first.
type Addr struct {
	MAC  [6]byte
	Type AddrType
}

// ParseAddr parses "aa:bb:cc:dd:ee:ff" (also accepts '-' separators) into a
// public address.
func ParseAddr(s string) (Addr, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil {
		return Addr{}, errors.Wrapf(ErrInvalidAddr, "%q", s)
	}
	if len(hw) != 6 {
		return Addr{}, errors.Wrapf(ErrInvalidAddr, "%q has %d bytes", s, len(hw))
	}

	var a Addr
	copy(a.MAC[:], hw)
	return a, nil
}

// WithType returns a copy of a carrying type t.
func (a Addr) WithType(t AddrType) Addr {
	a.Type = t
	return a
}

// String returns the lowercase colon separated form.
func (a Addr) String() string {
	return net.HardwareAddr(a.MAC[:]).String()
}

// IsZero reports whether a is the all-zero address.
func (a Addr) IsZero() bool {
	return a.MAC == [6]byte{}
}
