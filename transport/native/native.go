// Package native is a transport over the host Bluetooth stack (BlueZ,
// CoreBluetooth or WinRT).
//
// The host stack hides ATT handles and connection handles, so both are
// synthesized: connections are numbered from 0x0040, and service i owns the
// handle block [i<<8|0x01, i<<8|0xff] in which characteristic j is declared
// at start+2j+1 with its value right after. The portable API does not expose
// characteristic properties; they are reported as zero.
package native

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
	"github.com/rigado/gattbrowser/cmd"
	"github.com/rigado/gattbrowser/evt"
	"tinygo.org/x/bluetooth"
)

const (
	cmdQueueLen = 16
	evtQueueLen = 64

	firstConnHandle = 0x0040

	scanStopAttempts = 5
)

// scanStopWait is how long a stop request is given before it is repeated. A
// scan being set up when StopScan is called does not see the request.
var scanStopWait = 200 * time.Millisecond

// scanner is the part of *bluetooth.Adapter that scans.
type scanner interface {
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

var (
	ErrClosed = errors.New("transport closed")
	ErrBusy   = errors.New("command queue full")
)

// Transport drives the default adapter of the host. It satisfies
// browser.Transport.
type Transport struct {
	adapter *bluetooth.Adapter
	scanner scanner
	logger  gattbrowser.Logger

	cmds   chan cmd.Command
	events chan evt.Event
	done   chan struct{}
	wg     sync.WaitGroup

	muClose sync.Mutex
	started bool

	// worker state
	scanDone   chan struct{}
	nextHandle uint16
	services   map[uint16]bluetooth.DeviceService // by synthesized start handle

	// shared with the adapter's connect handler
	muConn sync.Mutex
	conn   *link
}

type link struct {
	handle uint16
	peer   gattbrowser.Addr
	device bluetooth.Device
}

// New returns a transport over the default adapter. A nil logger selects the
// default one.
func New(l gattbrowser.Logger) *Transport {
	return &Transport{
		adapter:    bluetooth.DefaultAdapter,
		scanner:    bluetooth.DefaultAdapter,
		logger:     gattbrowser.ComponentLogger(l, "native"),
		cmds:       make(chan cmd.Command, cmdQueueLen),
		events:     make(chan evt.Event, evtQueueLen),
		done:       make(chan struct{}),
		nextHandle: firstConnHandle,
		services:   make(map[uint16]bluetooth.DeviceService),
	}
}

// Start enables the adapter; LinkReady follows once it is powered.
func (t *Transport) Start() error {
	t.muClose.Lock()
	defer t.muClose.Unlock()

	if !t.isOpen() {
		return ErrClosed
	}
	if t.started {
		return errors.New("already started")
	}

	if err := t.adapter.Enable(); err != nil {
		return errors.Wrap(err, "can't enable adapter")
	}
	t.adapter.SetConnectHandler(t.handleConnect)
	t.started = true

	t.wg.Add(1)
	go t.loop()
	return nil
}

func (t *Transport) Events() <-chan evt.Event { return t.events }

// Send queues c for the worker.
func (t *Transport) Send(c cmd.Command) error {
	if !t.isOpen() {
		return ErrClosed
	}
	select {
	case t.cmds <- c:
		return nil
	default:
		return ErrBusy
	}
}

// Close stops scanning, drops any link and stops the worker.
func (t *Transport) Close() error {
	t.muClose.Lock()
	defer t.muClose.Unlock()

	select {
	case <-t.done:
		return nil
	default:
		close(t.done)
	}
	t.wg.Wait()

	if t.scanDone != nil {
		t.stopScan()
	}
	if l := t.takeLink(); l != nil {
		if err := l.device.Disconnect(); err != nil {
			return errors.Wrap(err, "disconnect on close")
		}
	}
	return nil
}

func (t *Transport) isOpen() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *Transport) loop() {
	defer t.wg.Done()

	if !t.emit(evt.LinkReady{}) {
		return
	}
	for {
		select {
		case <-t.done:
			return
		case c := <-t.cmds:
			if !t.handle(c) {
				return
			}
		}
	}
}

func (t *Transport) emit(ee ...evt.Event) bool {
	for _, e := range ee {
		select {
		case t.events <- e:
		case <-t.done:
			return false
		}
	}
	return true
}

// handle runs c against the host stack. The calls block, so they stay on the
// worker and off the event loop.
func (t *Transport) handle(c cmd.Command) bool {
	switch c := c.(type) {
	case cmd.SetScanParameters:
		// the host stack picks its own interval and window
		t.logger.Debugf("%s: not supported by host stack, ignoring", c)

	case cmd.StartScan:
		t.startScan()

	case cmd.StopScan:
		t.stopScan()

	case cmd.Connect:
		return t.emit(t.connect(c.Peer))

	case cmd.Disconnect:
		return t.emit(t.disconnect(c.Handle)...)

	case cmd.DiscoverPrimaryServices:
		return t.emit(t.discoverServices(c.Handle)...)

	case cmd.DiscoverCharacteristics:
		return t.emit(t.discoverCharacteristics(c.Handle, c.Service)...)

	default:
		t.logger.Warnf("unsupported command %s", c)
	}
	return true
}

func (t *Transport) startScan() {
	if t.scanDone != nil {
		t.logger.Warn("already scanning")
		return
	}

	done := make(chan struct{})
	t.scanDone = done
	go func() {
		defer close(done)
		err := t.scanner.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
			a, err := gattbrowser.ParseAddr(r.Address.String())
			if err != nil {
				// CoreBluetooth hands out UUIDs instead of addresses
				t.logger.Debugf("scan report from %s: %v", r.Address.String(), err)
				return
			}
			if r.Address.IsRandom() {
				a = a.WithType(gattbrowser.AddrRandom)
			}
			t.emit(evt.ScanReport{Advertisement: gattbrowser.Advertisement{
				EventType: gattbrowser.EvtTypeAdvInd,
				Addr:      a,
				RSSI:      int8(r.RSSI),
				Data:      r.Bytes(),
			}})
		})
		if err != nil {
			t.logger.Errorf("scan: %v", err)
		}
	}()
}

// stopScan asks the host stack to stop until the scan goroutine returns. It
// gives up after scanStopAttempts and leaves the goroutine behind.
func (t *Transport) stopScan() {
	if t.scanDone == nil {
		return
	}
	done := t.scanDone
	t.scanDone = nil

	for i := 0; i < scanStopAttempts; i++ {
		if err := t.scanner.StopScan(); err != nil {
			t.logger.Debugf("stop scan: %v", err)
		}
		select {
		case <-done:
			return
		case <-time.After(scanStopWait):
		}
	}
	t.logger.Warnf("scan still running after %d stop requests", scanStopAttempts)
}

func (t *Transport) connect(a gattbrowser.Addr) evt.Event {
	var addr bluetooth.Address
	addr.Set(a.String())
	addr.SetRandom(a.Type == gattbrowser.AddrRandom)

	d, err := t.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		t.logger.Errorf("connect %s: %v", a, err)
		return evt.ConnectionComplete{Status: evt.ErrConnFailedEstablishing, Peer: a}
	}

	t.muConn.Lock()
	defer t.muConn.Unlock()
	t.conn = &link{handle: t.nextHandle, peer: a, device: d}
	t.nextHandle++
	return evt.ConnectionComplete{Handle: t.conn.handle, Peer: a}
}

func (t *Transport) disconnect(handle uint16) []evt.Event {
	l := t.link(handle)
	if l == nil {
		t.logger.Warnf("disconnect 0x%04x: no such connection", handle)
		return nil
	}
	if err := l.device.Disconnect(); err != nil {
		t.logger.Errorf("disconnect %s: %v", l.peer, err)
	}

	// the connect handler may have reported it already
	if t.takeLink() == nil {
		return nil
	}
	return []evt.Event{evt.DisconnectionComplete{Handle: handle, Reason: evt.ErrLocalHost}}
}

// handleConnect runs on the host stack's goroutine.
func (t *Transport) handleConnect(d bluetooth.Device, connected bool) {
	if connected {
		return
	}

	t.muConn.Lock()
	l := t.conn
	if l == nil || d.Address.String() != l.device.Address.String() {
		t.muConn.Unlock()
		return
	}
	t.conn = nil
	t.muConn.Unlock()

	// the host stack doesn't tell why
	t.emit(evt.DisconnectionComplete{Handle: l.handle, Reason: evt.ErrConnTimeout})
}

func (t *Transport) link(handle uint16) *link {
	t.muConn.Lock()
	defer t.muConn.Unlock()
	if t.conn == nil || t.conn.handle != handle {
		return nil
	}
	return t.conn
}

func (t *Transport) takeLink() *link {
	t.muConn.Lock()
	defer t.muConn.Unlock()
	l := t.conn
	t.conn = nil
	return l
}

func (t *Transport) discoverServices(handle uint16) []evt.Event {
	l := t.link(handle)
	if l == nil {
		return []evt.Event{evt.QueryComplete{Handle: handle, Status: evt.ErrUnknownConnID}}
	}

	ss, err := l.device.DiscoverServices(nil)
	if err != nil {
		t.logger.Errorf("discover services: %v", err)
		return []evt.Event{evt.QueryComplete{Handle: handle, Status: evt.ErrAttUnlikely}}
	}

	ee := make([]evt.Event, 0, len(ss)+1)
	for i, s := range ss {
		if i > 0xfe {
			t.logger.Warnf("%d services, only the first 255 get handles", len(ss))
			break
		}
		start := uint16(i)<<8 | 0x01
		t.services[start] = s
		ee = append(ee, evt.ServiceQueryResult{Handle: handle, Service: gattbrowser.Service{
			StartHandle: start,
			EndHandle:   uint16(i)<<8 | 0xff,
			UUID:        fromHost(s.UUID()),
		}})
	}
	return append(ee, evt.QueryComplete{Handle: handle})
}

func (t *Transport) discoverCharacteristics(handle uint16, s gattbrowser.Service) []evt.Event {
	l := t.link(handle)
	if l == nil {
		return []evt.Event{evt.QueryComplete{Handle: handle, Status: evt.ErrUnknownConnID}}
	}
	svc, ok := t.services[s.StartHandle]
	if !ok {
		return []evt.Event{evt.QueryComplete{Handle: handle, Status: evt.ErrAttInvalidHandle}}
	}

	cc, err := svc.DiscoverCharacteristics(nil)
	if err != nil {
		t.logger.Errorf("discover characteristics of %s: %v", s, err)
		return []evt.Event{evt.QueryComplete{Handle: handle, Status: evt.ErrAttUnlikely}}
	}

	ee := make([]evt.Event, 0, len(cc)+1)
	for j, c := range cc {
		decl := s.StartHandle + uint16(2*j+1)
		if decl+1 >= s.EndHandle {
			t.logger.Warnf("%s: out of handles after %d characteristics", s, j)
			break
		}
		ee = append(ee, evt.CharacteristicQueryResult{Handle: handle, Characteristic: gattbrowser.Characteristic{
			DeclarationHandle: decl,
			ValueHandle:       decl + 1,
			EndHandle:         decl + 1,
			UUID:              fromHost(c.UUID()),
		}})
	}
	return append(ee, evt.QueryComplete{Handle: handle})
}

func fromHost(u bluetooth.UUID) gattbrowser.UUID {
	if u.Is16Bit() {
		return gattbrowser.UUID16(u.Get16Bit())
	}
	v, err := gattbrowser.ParseUUID(u.String())
	if err != nil {
		return gattbrowser.UUID{}
	}
	return v
}
