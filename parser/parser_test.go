package parser

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/rigado/gattbrowser"
)

type testPdu struct {
	b []byte
}

func (t *testPdu) addBad(recTyp byte, badRecLen byte, recBytes []byte) {
	t.b = append(t.b, badRecLen, recTyp)
	t.b = append(t.b, recBytes...)
}

func (t *testPdu) add(recTyp byte, recBytes []byte) {
	lb := byte(len(recBytes) + 1)
	t.b = append(t.b, lb, recTyp)
	t.b = append(t.b, recBytes...)
}

func (t *testPdu) bytes() []byte {
	return t.b
}

func elements(n int, base byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = base + byte(i)
	}
	return b
}

func testArrayGood(typ byte, t *testing.T) error {
	dec := pduDecodeMap[typ]
	b1 := elements(dec.arrayElementSz, 0)
	b2 := elements(dec.arrayElementSz, 0x80)
	b3 := elements(dec.arrayElementSz, 0x40)

	p := testPdu{}
	p.add(typ, append(append(append([]byte{}, b1...), b2...), b3...))

	m, err := Parse(p.bytes())
	if err != nil {
		return fmt.Errorf("decode error %v", err)
	}

	vv, ok := m[dec.key].([]gattbrowser.UUID)
	if !ok {
		return fmt.Errorf("wrong type %v", reflect.TypeOf(m[dec.key]))
	}
	if len(vv) != 3 {
		return fmt.Errorf("uuid count mismatch, exp 3, have %v", len(vv))
	}

	for i, b := range [][]byte{b1, b2, b3} {
		want, err := gattbrowser.UUIDFromBytes(b)
		if err != nil {
			return err
		}
		if !vv[i].Equal(want) {
			return fmt.Errorf("mismatch @ %d: %s != %s", i, vv[i], want)
		}
	}
	return nil
}

func testArrayBad(typ byte, t *testing.T) error {
	dec := pduDecodeMap[typ]

	// len % arraySz != 0
	p := testPdu{}
	p.add(typ, append(elements(2*dec.arrayElementSz, 0), 0xbb))
	if _, err := Parse(p.bytes()); err == nil {
		return fmt.Errorf("len%%size != 0, no decode error")
	}

	// len < elementSz
	p = testPdu{}
	p.add(typ, elements(dec.arrayElementSz-1, 0))
	if _, err := Parse(p.bytes()); err == nil {
		return fmt.Errorf("len<arrayElementSize, no decode error")
	}

	// corrupt length
	b := elements(2*dec.arrayElementSz, 0)
	p = testPdu{}
	p.addBad(typ, byte(len(b)+32), b)
	if _, err := Parse(p.bytes()); err == nil {
		return fmt.Errorf("corrupt length +32, no decode error")
	}

	p = testPdu{}
	p.addBad(typ, 255, b)
	if _, err := Parse(p.bytes()); err == nil {
		return fmt.Errorf("corrupt length 255, no decode error")
	}
	return nil
}

func TestParserArrays(t *testing.T) {
	for _, typ := range []byte{
		TypeUUID16Inc, TypeUUID16Comp,
		TypeUUID32Inc, TypeUUID32Comp,
		TypeUUID128Inc, TypeUUID128Comp,
		TypeSol16, TypeSol32, TypeSol128,
	} {
		if err := testArrayGood(typ, t); err != nil {
			t.Fatalf("adv type %v: %v", typ, err)
		}
		if err := testArrayBad(typ, t); err != nil {
			t.Fatalf("adv type %v: %v", typ, err)
		}
	}
}

func TestParserNonArrays(t *testing.T) {
	for _, typ := range []byte{TypeFlags, TypeNameShort, TypeNameComp, TypeTxPower, TypeMfgData} {
		dec := pduDecodeMap[typ]
		b := elements(dec.minSz+2, 0x30)

		p := testPdu{}
		p.add(typ, b)
		m, err := Parse(p.bytes())
		if err != nil {
			t.Fatalf("adv type %v: decode error %v", typ, err)
		}
		if !reflect.DeepEqual(m[dec.key], b) {
			t.Fatalf("adv type %v: got %v, want %v", typ, m[dec.key], b)
		}
	}
}

func TestServiceData(t *testing.T) {
	p := testPdu{}
	p.add(TypeSvcData16, []byte{0x0f, 0x18, 0x55})
	p.add(TypeSvcData16, []byte{0x0f, 0x18, 0x56, 0x57})

	m, err := Parse(p.bytes())
	if err != nil {
		t.Fatal(err)
	}
	msd, ok := m[KeyServiceData].(map[string][][]byte)
	if !ok {
		t.Fatalf("wrong type %v", reflect.TypeOf(m[KeyServiceData]))
	}
	want := [][]byte{{0x55}, {0x56, 0x57}}
	if !reflect.DeepEqual(msd["180f"], want) {
		t.Fatalf("got %v, want %v", msd, want)
	}
}

func TestParserCombined(t *testing.T) {
	p := testPdu{}
	p.add(TypeFlags, []byte{0x06})
	p.add(TypeUUID16Comp, []byte{0x0d, 0x18, 0x0f, 0x18})
	p.add(TypeNameShort, []byte("hr"))
	p.add(TypeNameComp, []byte("hr-sensor"))
	p.add(TypeMfgData, []byte{0x4c, 0x00, 0x01})
	p.add(TypeMfgData, []byte{0x4c, 0x00, 0x02})
	// unknown types are skipped
	p.add(0x3d, []byte{0xde, 0xad})

	m, err := Parse(p.bytes())
	if err != nil {
		t.Fatal(err)
	}

	if got := LocalName(m); got != "hr-sensor" {
		t.Fatalf("name %q", got)
	}
	svcs := m[KeyServices].([]gattbrowser.UUID)
	if len(svcs) != 2 || !svcs[0].Equal(gattbrowser.UUID16(0x180d)) || !svcs[1].Equal(gattbrowser.UUID16(0x180f)) {
		t.Fatalf("services %v", svcs)
	}
	if got := m[KeyMfgData].([]byte); !reflect.DeepEqual(got, []byte{0x4c, 0x00, 0x01, 0x02}) {
		t.Fatalf("mfg % x", got)
	}
	if len(m) != 4 {
		t.Fatalf("keys %v", m)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(nil); err != ErrEmptyPdu {
		t.Fatalf("nil pdu: %v", err)
	}

	// zero length record
	if _, err := Parse([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Fatal("zero length, no decode error")
	}

	// fields before the bad one survive
	p := testPdu{}
	p.add(TypeFlags, []byte{0x06})
	p.addBad(TypeNameComp, 10, []byte("ab"))
	m, err := Parse(p.bytes())
	if err == nil {
		t.Fatal("truncated name, no decode error")
	}
	if !reflect.DeepEqual(m[KeyFlags], []byte{0x06}) {
		t.Fatalf("flags %v", m[KeyFlags])
	}
}
