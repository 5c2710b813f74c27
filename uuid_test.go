package gattbrowser

import (
	"bytes"
	"testing"
)

func TestParseUUID(t *testing.T) {
	tests := []struct {
		in    string
		short bool
		str   string
	}{
		{"180d", true, "180d"},
		{"0x2A37", true, "2a37"},
		{"0000180f", true, "180f"},
		{"12345678", false, "12345678-0000-1000-8000-00805f9b34fb"},
		{"6E400001-B5A3-F393-E0A9-E50E24DCCA9E", false, "6e400001-b5a3-f393-e0a9-e50e24dcca9e"},
	}
	for _, tt := range tests {
		u, err := ParseUUID(tt.in)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if u.IsShort() != tt.short || u.String() != tt.str {
			t.Fatalf("%q: got %s short %v", tt.in, u, u.IsShort())
		}
	}

	for _, s := range []string{"", "18", "xyzw", "6e400001-b5a3"} {
		if _, err := ParseUUID(s); err == nil {
			t.Fatalf("%q: no error", s)
		}
	}
}

func TestUUIDBytes(t *testing.T) {
	u := UUID16(0x180d)
	if !bytes.Equal(u.Bytes(), []byte{0x0d, 0x18}) || u.Len() != 2 {
		t.Fatalf("got % x", u.Bytes())
	}

	l := MustParseUUID("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	b := l.Bytes()
	if len(b) != 16 || b[0] != 0x9e || b[15] != 0x6e || l.Len() != 16 {
		t.Fatalf("got % x", b)
	}

	for _, in := range [][]byte{u.Bytes(), b} {
		v, err := UUIDFromBytes(in)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(v.Bytes(), in) {
			t.Fatalf("round trip % x -> % x", in, v.Bytes())
		}
	}
	if _, err := UUIDFromBytes([]byte{1, 2, 3}); err == nil {
		t.Fatal("accepted 3 bytes")
	}
}

func TestUUIDEqual(t *testing.T) {
	short := UUID16(0x180d)
	long := MustParseUUID("0000180d-0000-1000-8000-00805f9b34fb")
	if !short.Equal(long) || short == long {
		t.Fatal("short and long forms of the same UUID")
	}
	if short.Equal(UUID16(0x180f)) {
		t.Fatal("different UUIDs equal")
	}
}

func TestUUIDText(t *testing.T) {
	var u UUID
	if err := u.UnmarshalText([]byte("2a37")); err != nil {
		t.Fatal(err)
	}
	b, err := u.MarshalText()
	if err != nil || string(b) != "2a37" {
		t.Fatalf("got %s %v", b, err)
	}
	if err := u.UnmarshalText([]byte("nope")); err == nil {
		t.Fatal("no error")
	}
}

func TestMustParseUUIDPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("no panic")
		}
	}()
	MustParseUUID("bad")
}
