package sliceops

import (
	"bytes"
	"testing"
)

func TestSwapBuf(t *testing.T) {
	for _, tt := range []struct{ in, out []byte }{
		{nil, []byte{}},
		{[]byte{1}, []byte{1}},
		{[]byte{1, 2}, []byte{2, 1}},
		{[]byte{1, 2, 3, 4, 5}, []byte{5, 4, 3, 2, 1}},
	} {
		in := append([]byte(nil), tt.in...)
		got := SwapBuf(in)
		if !bytes.Equal(got, tt.out) {
			t.Fatalf("%v: got %v, want %v", tt.in, got, tt.out)
		}
		if !bytes.Equal(in, tt.in) {
			t.Fatalf("input modified: %v", in)
		}
	}
}
