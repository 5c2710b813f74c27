package report

import (
	"bytes"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rigado/gattbrowser"
)

var (
	gap = gattbrowser.Service{StartHandle: 0x0001, EndHandle: 0x0005, UUID: gattbrowser.UUID16(0x1800)}
	hrs = gattbrowser.Service{StartHandle: 0x0006, EndHandle: 0xffff, UUID: gattbrowser.UUID16(0x180d)}

	name = gattbrowser.Characteristic{DeclarationHandle: 0x0002, ValueHandle: 0x0003, EndHandle: 0x0005, Properties: gattbrowser.CharRead, UUID: gattbrowser.UUID16(0x2a00)}
	hrm  = gattbrowser.Characteristic{DeclarationHandle: 0x0007, ValueHandle: 0x0008, EndHandle: 0xffff, Properties: gattbrowser.CharNotify, UUID: gattbrowser.UUID16(0x2a37)}
)

func feed(c *Collector, peer gattbrowser.Addr) {
	c.Service(gap)
	c.Service(hrs)
	c.CharacteristicsOf(gap)
	c.Characteristic(name)
	c.CharacteristicsOf(hrs)
	c.Characteristic(hrm)
	c.Disconnected(gattbrowser.Connection{Handle: 0x40, Peer: peer}, 0x16)
}

func TestCollector(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(WithWriter(&buf))

	// characteristics without a current service are dropped
	c.Characteristic(name)

	peer, _ := gattbrowser.ParseAddr("aa:bb:cc:dd:ee:ff")
	feed(c, peer.WithType(gattbrowser.AddrRandom))
	if !c.Done() || c.Err() != nil {
		t.Fatalf("done %v err %v", c.Done(), c.Err())
	}

	want := Profile{
		Address:     "aa:bb:cc:dd:ee:ff",
		AddressType: "random",
		Services: []ServiceProfile{
			{Service: gap, Characteristics: []gattbrowser.Characteristic{name}},
			{Service: hrs, Characteristics: []gattbrowser.Characteristic{hrm}},
		},
		DisconnectReason: 0x16,
	}
	if !reflect.DeepEqual(c.Profile(), want) {
		t.Fatalf("got %+v, want %+v", c.Profile(), want)
	}

	var got Profile
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("decoded %+v, want %+v", got, want)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"uuid": "180d"`)) {
		t.Fatalf("uuid not in text form:\n%s", buf.String())
	}
}

func TestCache(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "profiles.json")
	cache := NewCache(fn)
	peer, _ := gattbrowser.ParseAddr("12:34:56:78:90:ab")

	if _, err := cache.Load(peer); err == nil {
		t.Fatal("loaded from empty cache")
	}

	c := NewCollector(WithCache(cache, false))
	feed(c, peer)
	if c.Err() != nil {
		t.Fatal(c.Err())
	}

	loaded, err := cache.Load(peer)
	if err != nil {
		t.Fatalf("expected to find mac in cache but did not: %s", err)
	}
	if !reflect.DeepEqual(loaded, c.Profile()) {
		t.Fatalf("stored and loaded profiles are not equal")
	}

	// a second run without replace keeps the first profile
	again := NewCollector(WithCache(cache, false))
	feed(again, peer)
	if again.Err() == nil {
		t.Fatal("overwrote cached profile")
	}

	if err := NewCollector(WithCache(cache, true)).cache.Store(peer, Profile{}, true); err != nil {
		t.Fatal(err)
	}
	if p, _ := cache.Load(peer); len(p.Services) != 0 {
		t.Fatalf("not replaced: %+v", p)
	}

	if err := cache.Clear(); err != nil {
		t.Fatal(err)
	}
}
