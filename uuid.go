package gattbrowser

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser/sliceops"
)

// BaseUUID is the Bluetooth base UUID that 16 and 32 bit UUIDs are aliases of.
var BaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// UUID is a BLE UUID in either its 16 bit short form or its 128 bit long form.
// A zero Short means Long is authoritative.
type UUID struct {
	Short uint16
	Long  uuid.UUID
}

// UUID16 returns the short form of u.
func UUID16(u uint16) UUID {
	return UUID{Short: u}
}

// UUID128 returns the long form of u.
func UUID128(u uuid.UUID) UUID {
	return UUID{Long: u}
}

// ParseUUID parses "180d", "0x180d" or a canonical 128 bit UUID.
func ParseUUID(s string) (UUID, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	switch len(s) {
	case 4:
		b, err := hex.DecodeString(s)
		if err != nil {
			return UUID{}, errors.Wrapf(err, "uuid %q", s)
		}
		return UUID16(binary.BigEndian.Uint16(b)), nil
	case 8:
		b, err := hex.DecodeString(s)
		if err != nil {
			return UUID{}, errors.Wrapf(err, "uuid %q", s)
		}
		return uuid32(binary.BigEndian.Uint32(b)), nil
	default:
		u, err := uuid.Parse(s)
		if err != nil {
			return UUID{}, errors.Wrapf(err, "uuid %q", s)
		}
		return UUID128(u), nil
	}
}

// MustParseUUID is like ParseUUID but panics on error.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// UUIDFromBytes decodes a little-endian UUID as it appears in ATT PDUs and
// advertising data. 32 bit UUIDs are widened to 128 bit.
func UUIDFromBytes(b []byte) (UUID, error) {
	switch len(b) {
	case 2:
		return UUID16(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return uuid32(binary.LittleEndian.Uint32(b)), nil
	case 16:
		u, err := uuid.FromBytes(sliceops.SwapBuf(b))
		if err != nil {
			return UUID{}, err
		}
		return UUID128(u), nil
	}
	return UUID{}, fmt.Errorf("UUIDs must have length 2, 4 or 16, got %d", len(b))
}

func uuid32(v uint32) UUID {
	if v <= 0xffff && v != 0 {
		return UUID16(uint16(v))
	}
	u := BaseUUID
	binary.BigEndian.PutUint32(u[0:4], v)
	return UUID128(u)
}

// IsShort reports whether u is a 16 bit UUID.
func (u UUID) IsShort() bool {
	return u.Short != 0
}

// Len returns the over-the-air length, 2 or 16.
func (u UUID) Len() int {
	if u.IsShort() {
		return 2
	}
	return 16
}

// Bytes returns the little-endian wire form.
func (u UUID) Bytes() []byte {
	if u.IsShort() {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, u.Short)
		return b
	}
	return sliceops.SwapBuf(u.Long[:])
}

// Full returns the 128 bit form, expanding short UUIDs over BaseUUID.
func (u UUID) Full() uuid.UUID {
	if !u.IsShort() {
		return u.Long
	}
	f := BaseUUID
	binary.BigEndian.PutUint32(f[0:4], uint32(u.Short))
	return f
}

// Equal compares u and v in their 128 bit form.
func (u UUID) Equal(v UUID) bool {
	return u.Full() == v.Full()
}

// String returns "180d" for short UUIDs and the canonical form otherwise.
func (u UUID) String() string {
	if u.IsShort() {
		return fmt.Sprintf("%04x", u.Short)
	}
	return u.Long.String()
}

// MarshalText implements encoding.TextMarshaler.
func (u UUID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UUID) UnmarshalText(b []byte) error {
	v, err := ParseUUID(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}
