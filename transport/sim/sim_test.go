package sim

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
	"github.com/rigado/gattbrowser/adv"
	"github.com/rigado/gattbrowser/cmd"
	"github.com/rigado/gattbrowser/evt"
)

const fixtureYAML = `
peripherals:
  - address: "c0:ff:ee:00:00:01"
    random: true
    name: thermo
    rssi: -55
    adverts: 2
    txPower: -4
    manufacturer: {id: 0x0059, data: "0102"}
    services:
      - uuid: "1800"
        characteristics:
          - {uuid: "2a00", properties: R}
          - {uuid: "2a01", properties: R}
      - uuid: "181a"
        status: 0x05
        characteristics:
          - {uuid: "2a6e", properties: RN}
  - address: "00:11:22:33:44:55"
    connectStatus: 0x3e
`

const fixtureJSON = `{
  "peripherals": [
    {"address": "00:11:22:33:44:55", "services": [{"uuid": "6e400001-b5a3-f393-e0a9-e50e24dcca9e"}]}
  ]
}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func load(t *testing.T) *Fixture {
	t.Helper()
	f, err := Load(writeFile(t, "fixture.yaml", fixtureYAML))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestLoad(t *testing.T) {
	f := load(t)
	if len(f.Peripherals) != 2 {
		t.Fatalf("%d peripherals", len(f.Peripherals))
	}
	p := f.Peripherals[0]
	if !p.Random || p.RSSI != -55 || len(p.Services) != 2 || p.Services[1].Status != 0x05 {
		t.Fatalf("got %+v", p)
	}
	if f.Peripherals[1].ConnectStatus != 0x3e {
		t.Fatalf("connect status %v", f.Peripherals[1].ConnectStatus)
	}

	j, err := Load(writeFile(t, "fixture.json", fixtureJSON))
	if err != nil {
		t.Fatal(err)
	}
	if len(j.Peripherals) != 1 || j.Peripherals[0].Services[0].UUID != "6e400001-b5a3-f393-e0a9-e50e24dcca9e" {
		t.Fatalf("got %+v", j)
	}

	if _, err := Load(writeFile(t, "bad.json", "{")); err == nil {
		t.Fatal("decoded bad json")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("loaded missing file")
	}
}

func TestHandleLayout(t *testing.T) {
	d, err := load(t).Peripherals[0].device()
	if err != nil {
		t.Fatal(err)
	}

	want := []gattbrowser.Service{
		{StartHandle: 0x0001, EndHandle: 0x0005, UUID: gattbrowser.UUID16(0x1800)},
		{StartHandle: 0x0006, EndHandle: 0x0009, UUID: gattbrowser.UUID16(0x181a)},
	}
	if len(d.services) != len(want) {
		t.Fatalf("services %v", d.services)
	}
	for i := range want {
		if d.services[i] != want[i] {
			t.Fatalf("service %d: got %s, want %s", i, d.services[i], want[i])
		}
	}

	// notify gets a CCCD after its value
	c := d.chars[0x0006][0]
	if c.DeclarationHandle != 0x0007 || c.ValueHandle != 0x0008 || c.EndHandle != 0x0009 {
		t.Fatalf("got %s", c)
	}
	if d.addr.Type != gattbrowser.AddrRandom {
		t.Fatalf("addr type %s", d.addr.Type)
	}

	p, err := adv.NewRawPacket(d.advData)
	if err != nil {
		t.Fatal(err)
	}
	if p.LocalName() != "thermo" || len(p.UUIDs()) != 2 {
		t.Fatalf("adv name %q uuids %v", p.LocalName(), p.UUIDs())
	}
	if pw, ok := p.TxPower(); !ok || pw != -4 {
		t.Fatalf("tx power %v %v", pw, ok)
	}
	if m := p.ManufacturerData(); len(m) != 4 || m[0] != 0x59 || m[1] != 0x00 || m[3] != 0x02 {
		t.Fatalf("manufacturer data % x", m)
	}
}

func TestInvalidFixture(t *testing.T) {
	for _, p := range []Peripheral{
		{Address: "nope"},
		{Address: "00:11:22:33:44:55", Services: []Service{{UUID: "xyz"}}},
		{Address: "00:11:22:33:44:55", Manufacturer: &Manufacturer{ID: 0x0059, Data: "zz"}},
		{Address: "00:11:22:33:44:55", Manufacturer: &Manufacturer{ID: 0x0059, Data: strings.Repeat("00", 28)}},
		{Address: "00:11:22:33:44:55", Services: []Service{{UUID: "1800", Characteristics: []Characteristic{{UUID: "2a00", Properties: "Q"}}}}},
	} {
		if _, err := New(&Fixture{Peripherals: []Peripheral{p}}, nil); err == nil {
			t.Fatalf("accepted %+v", p)
		}
	}
}

type harness struct {
	t  *testing.T
	tr *Transport
}

func start(t *testing.T, f *Fixture) *harness {
	tr, err := New(f, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tr.Close() })

	h := &harness{t: t, tr: tr}
	h.expect(evt.LinkReadyCode)
	return h
}

func (h *harness) send(c cmd.Command) {
	h.t.Helper()
	if err := h.tr.Send(c); err != nil {
		h.t.Fatal(err)
	}
}

func (h *harness) next() evt.Event {
	h.t.Helper()
	select {
	case e := <-h.tr.Events():
		return e
	case <-time.After(time.Second):
		h.t.Fatal("no event")
	}
	return nil
}

func (h *harness) expect(cc ...evt.Code) []evt.Event {
	h.t.Helper()
	var ee []evt.Event
	for _, c := range cc {
		e := h.next()
		if e.Code() != c {
			h.t.Fatalf("got %s, want %s", e, c)
		}
		ee = append(ee, e)
	}
	return ee
}

func TestScanConnectDiscover(t *testing.T) {
	h := start(t, load(t))

	h.send(cmd.SetScanParameters{ScanParams: gattbrowser.DefaultScanParams()})
	h.send(cmd.StartScan{})
	ee := h.expect(evt.ScanReportCode, evt.ScanReportCode, evt.ScanReportCode)
	first := ee[0].(evt.ScanReport)
	if first.Addr.String() != "c0:ff:ee:00:00:01" || first.RSSI != -55 {
		t.Fatalf("got %s", first)
	}

	h.send(cmd.StopScan{})
	h.send(cmd.Connect{Peer: first.Addr})
	cc := h.expect(evt.ConnectionCompleteCode)[0].(evt.ConnectionComplete)
	if cc.Status != evt.StatusSuccess || cc.Handle != firstConnHandle {
		t.Fatalf("got %s", cc)
	}

	h.send(cmd.DiscoverPrimaryServices{Handle: cc.Handle})
	ee = h.expect(evt.ServiceQueryResultCode, evt.ServiceQueryResultCode, evt.QueryCompleteCode)
	second := ee[1].(evt.ServiceQueryResult).Service

	h.send(cmd.DiscoverCharacteristics{Handle: cc.Handle, Service: second})
	ee = h.expect(evt.CharacteristicQueryResultCode, evt.QueryCompleteCode)
	if qc := ee[1].(evt.QueryComplete); qc.Status != 0x05 {
		t.Fatalf("got %s", qc)
	}

	h.send(cmd.Disconnect{Handle: cc.Handle, Reason: evt.ErrRemoteUser})
	dc := h.expect(evt.DisconnectionCompleteCode)[0].(evt.DisconnectionComplete)
	if dc.Handle != cc.Handle || dc.Reason != evt.ErrLocalHost {
		t.Fatalf("got %s", dc)
	}

	if n := len(h.tr.Sent()); n != 7 {
		t.Fatalf("recorded %d commands", n)
	}
}

func TestConnectFaults(t *testing.T) {
	h := start(t, load(t))

	a, _ := gattbrowser.ParseAddr("00:11:22:33:44:55")
	h.send(cmd.Connect{Peer: a})
	if cc := h.expect(evt.ConnectionCompleteCode)[0].(evt.ConnectionComplete); cc.Status != 0x3e {
		t.Fatalf("got %s", cc)
	}

	u, _ := gattbrowser.ParseAddr("0a:0b:0c:0d:0e:0f")
	h.send(cmd.Connect{Peer: u})
	if cc := h.expect(evt.ConnectionCompleteCode)[0].(evt.ConnectionComplete); cc.Status != evt.ErrConnFailedEstablishing {
		t.Fatalf("got %s", cc)
	}

	if _, err := h.tr.lookup(u); errors.Cause(err) != ErrUnknownPeer {
		t.Fatalf("got %v", err)
	}
}

func TestLinkDrop(t *testing.T) {
	f := load(t)
	f.Peripherals[0].DropAfter = 1
	h := start(t, f)

	h.send(cmd.Connect{Peer: h.tr.devices[0].addr})
	handle := h.expect(evt.ConnectionCompleteCode)[0].(evt.ConnectionComplete).Handle

	h.send(cmd.DiscoverPrimaryServices{Handle: handle})
	ee := h.expect(evt.ServiceQueryResultCode, evt.ServiceQueryResultCode, evt.QueryCompleteCode)

	h.send(cmd.DiscoverCharacteristics{Handle: handle, Service: ee[0].(evt.ServiceQueryResult).Service})
	dc := h.expect(evt.DisconnectionCompleteCode)[0].(evt.DisconnectionComplete)
	if dc.Reason != evt.ErrConnTimeout {
		t.Fatalf("got %s", dc)
	}
}

func TestClosed(t *testing.T) {
	tr, err := New(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Start(); err != ErrClosed {
		t.Fatalf("start: %v", err)
	}
	if err := tr.Send(cmd.StopScan{}); err != ErrClosed {
		t.Fatalf("send: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
}
