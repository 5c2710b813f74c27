// Package sim is an in-process transport that plays the controller and the
// peripherals of a Fixture. It answers each command with the events a real
// controller would produce, in order, from a single worker goroutine.
package sim

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
	"github.com/rigado/gattbrowser/cmd"
	"github.com/rigado/gattbrowser/evt"
)

const (
	cmdQueueLen = 16
	evtQueueLen = 64

	// first connection handle handed out
	firstConnHandle = 0x0040
)

var (
	ErrClosed = errors.New("transport closed")
	ErrBusy   = errors.New("command queue full")
)

// Transport is a simulated controller. It satisfies browser.Transport.
type Transport struct {
	devices []*device
	logger  gattbrowser.Logger

	cmds   chan cmd.Command
	events chan evt.Event
	done   chan struct{}
	wg     sync.WaitGroup

	muClose sync.Mutex
	started bool

	muSent sync.Mutex
	sent   []cmd.Command

	// worker state
	scanParams gattbrowser.ScanParams
	scanning   bool
	nextHandle uint16
	conn       *link
}

type link struct {
	handle  uint16
	dev     *device
	queries int
}

// New returns a transport simulating the peripherals of f. A nil logger
// selects the default one.
func New(f *Fixture, l gattbrowser.Logger) (*Transport, error) {
	if f == nil {
		f = &Fixture{}
	}
	dd, err := f.devices()
	if err != nil {
		return nil, errors.Wrap(err, "invalid fixture")
	}
	return &Transport{
		devices:    dd,
		logger:     gattbrowser.ComponentLogger(l, "sim"),
		cmds:       make(chan cmd.Command, cmdQueueLen),
		events:     make(chan evt.Event, evtQueueLen),
		done:       make(chan struct{}),
		nextHandle: firstConnHandle,
	}, nil
}

// Start powers the simulated controller; LinkReady is the first event.
func (t *Transport) Start() error {
	t.muClose.Lock()
	defer t.muClose.Unlock()

	if !t.isOpen() {
		return ErrClosed
	}
	if t.started {
		return errors.New("already started")
	}
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

	t.muSent.Lock()
	t.sent = append(t.sent, c)
	t.muSent.Unlock()

	select {
	case t.cmds <- c:
		return nil
	default:
		return ErrBusy
	}
}

// Close stops the worker. The event channel is left open; pending events
// are dropped.
func (t *Transport) Close() error {
	t.muClose.Lock()
	defer t.muClose.Unlock()

	select {
	case <-t.done:
		// already closed, nothing to do
	default:
		close(t.done)
	}
	t.wg.Wait()
	return nil
}

// Sent returns every command handed to Send so far.
func (t *Transport) Sent() []cmd.Command {
	t.muSent.Lock()
	defer t.muSent.Unlock()
	return append([]cmd.Command(nil), t.sent...)
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

// emit delivers e unless the transport is closed first.
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

func (t *Transport) handle(c cmd.Command) bool {
	switch c := c.(type) {
	case cmd.SetScanParameters:
		if err := c.Validate(); err != nil {
			t.logger.Warnf("set scan parameters: %v", err)
			return true
		}
		t.scanParams = c.ScanParams

	case cmd.StartScan:
		t.scanning = true
		return t.emit(t.scanReports()...)

	case cmd.StopScan:
		t.scanning = false

	case cmd.Connect:
		return t.emit(t.connect(c.Peer))

	case cmd.Disconnect:
		if t.conn == nil || t.conn.handle != c.Handle {
			t.logger.Warnf("%s: no such connection", c)
			return true
		}
		h := t.conn.handle
		t.conn = nil
		return t.emit(evt.DisconnectionComplete{Handle: h, Reason: evt.ErrLocalHost})

	case cmd.DiscoverPrimaryServices:
		return t.emit(t.discoverServices(c.Handle)...)

	case cmd.DiscoverCharacteristics:
		return t.emit(t.discoverCharacteristics(c.Handle, c.Service)...)

	default:
		t.logger.Warnf("unsupported command %s", c)
	}
	return true
}

func (t *Transport) scanReports() []evt.Event {
	et := gattbrowser.EvtTypeAdvInd
	if t.scanParams.Type == gattbrowser.LEScanTypeActive {
		et = gattbrowser.EvtTypeScanRsp
	}

	var ee []evt.Event
	for _, d := range t.devices {
		for i := 0; i < d.adverts; i++ {
			ee = append(ee, evt.ScanReport{Advertisement: gattbrowser.Advertisement{
				EventType: et,
				Addr:      d.addr,
				RSSI:      d.rssi,
				Data:      append([]byte(nil), d.advData...),
			}})
		}
	}
	return ee
}

func (t *Transport) lookup(a gattbrowser.Addr) (*device, error) {
	for _, d := range t.devices {
		if d.addr.MAC == a.MAC {
			return d, nil
		}
	}
	return nil, errors.Wrap(ErrUnknownPeer, a.String())
}

func (t *Transport) connect(a gattbrowser.Addr) evt.Event {
	if t.scanning {
		t.logger.Warn("connect while scanning")
	}
	if t.conn != nil {
		return evt.ConnectionComplete{Status: evt.ErrConnFailedEstablishing, Peer: a}
	}

	d, err := t.lookup(a)
	if err != nil {
		t.logger.Warnf("connect: %v", err)
		return evt.ConnectionComplete{Status: evt.ErrConnFailedEstablishing, Peer: a}
	}
	if d.connectStatus != evt.StatusSuccess {
		return evt.ConnectionComplete{Status: d.connectStatus, Peer: d.addr}
	}

	t.conn = &link{handle: t.nextHandle, dev: d}
	t.nextHandle++
	return evt.ConnectionComplete{Handle: t.conn.handle, Peer: d.addr}
}

// query accounts for one discovery request on handle. It returns the events
// to deliver instead of an answer when the request can't be served.
func (t *Transport) query(handle uint16) []evt.Event {
	if t.conn == nil || t.conn.handle != handle {
		return []evt.Event{evt.QueryComplete{Handle: handle, Status: evt.ErrUnknownConnID}}
	}

	t.conn.queries++
	if d := t.conn.dev.dropAfter; d > 0 && t.conn.queries > d {
		t.conn = nil
		return []evt.Event{evt.DisconnectionComplete{Handle: handle, Reason: evt.ErrConnTimeout}}
	}
	return nil
}

func (t *Transport) discoverServices(handle uint16) []evt.Event {
	if ee := t.query(handle); ee != nil {
		return ee
	}

	d := t.conn.dev
	ee := make([]evt.Event, 0, len(d.services)+1)
	for _, s := range d.services {
		ee = append(ee, evt.ServiceQueryResult{Handle: handle, Service: s})
	}
	return append(ee, evt.QueryComplete{Handle: handle, Status: d.serviceStatus})
}

func (t *Transport) discoverCharacteristics(handle uint16, s gattbrowser.Service) []evt.Event {
	if ee := t.query(handle); ee != nil {
		return ee
	}

	d := t.conn.dev
	cc, ok := d.chars[s.StartHandle]
	if !ok {
		return []evt.Event{evt.QueryComplete{Handle: handle, Status: evt.ErrAttAttrNotFound}}
	}

	ee := make([]evt.Event, 0, len(cc)+1)
	for _, c := range cc {
		ee = append(ee, evt.CharacteristicQueryResult{Handle: handle, Characteristic: c})
	}
	return append(ee, evt.QueryComplete{Handle: handle, Status: d.status[s.StartHandle]})
}
