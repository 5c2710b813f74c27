// Package gap drives the link: it starts scanning or connects once the
// controller is ready, hands the connection to the GATT session and ends the
// run on disconnection.
package gap

import (
	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
	"github.com/rigado/gattbrowser/cmd"
	"github.com/rigado/gattbrowser/evt"
	"github.com/rigado/gattbrowser/gatt"
	"github.com/rigado/gattbrowser/store"
)

var (
	// ErrConnectionFailed ends a run whose connect request was refused.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrLinkLost ends a run whose link dropped before discovery finished.
	ErrLinkLost = errors.New("link lost during discovery")
)

type handlerFn func(e evt.Event) []cmd.Command

// Controller maps link events onto the discovery session. One controller
// exists per run; it is driven from a single event loop.
type Controller struct {
	selector *Selector
	session  *gatt.Session

	capacity   int
	scanParams gattbrowser.ScanParams
	reporter   gattbrowser.Reporter
	logger     gattbrowser.Logger

	conn gattbrowser.Connection
	err  error

	handlers map[evt.Code]handlerFn
}

// NewController returns a controller awaiting link-ready.
func NewController(opts ...gattbrowser.Option) (*Controller, error) {
	c := &Controller{
		selector:   NewSelector(),
		capacity:   store.DefaultCapacity,
		scanParams: gattbrowser.DefaultScanParams(),
		reporter:   gattbrowser.NopReporter{},
	}
	if err := c.Option(opts...); err != nil {
		return nil, errors.Wrap(err, "can't set options")
	}

	parent := c.logger
	c.logger = gattbrowser.ComponentLogger(parent, "gap")
	c.session = gatt.NewSession(store.New(c.capacity), c.reporter, parent)

	c.handlers = map[evt.Code]handlerFn{
		evt.LinkReadyCode:             c.handleLinkReady,
		evt.ScanReportCode:            c.handleScanReport,
		evt.ConnectionCompleteCode:    c.handleConnectionComplete,
		evt.DisconnectionCompleteCode: c.handleDisconnectionComplete,
	}
	return c, nil
}

// Option sets the options specified.
func (c *Controller) Option(opts ...gattbrowser.Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// Session returns the discovery session the controller hands the link to.
func (c *Controller) Session() *gatt.Session { return c.session }

// Selector returns the peer selector.
func (c *Controller) Selector() *Selector { return c.selector }

// Phase returns the phase of the run.
func (c *Controller) Phase() gattbrowser.Phase { return c.session.Phase() }

// Logger returns the controller's logger.
func (c *Controller) Logger() gattbrowser.Logger { return c.logger }

// Connection returns the current (or last) link.
func (c *Controller) Connection() gattbrowser.Connection { return c.conn }

// Done reports whether the run has ended.
func (c *Controller) Done() bool { return c.session.Phase() == gattbrowser.Terminated }

// Err returns why the run ended, or nil for a clean end.
func (c *Controller) Err() error { return c.err }

// Handle feeds an event to the controller and returns the requests to issue.
// Events that are not link events go to the discovery session.
func (c *Controller) Handle(e evt.Event) []cmd.Command {
	if c.Done() {
		c.logger.Debugf("%s after termination, ignoring", e)
		return nil
	}
	if f, ok := c.handlers[e.Code()]; ok {
		return f(e)
	}
	return c.session.Handle(e)
}

func (c *Controller) handleLinkReady(e evt.Event) []cmd.Command {
	if c.Phase() != gattbrowser.AwaitingLink {
		c.logger.Warnf("%s in phase %s, ignoring", e, c.Phase())
		return nil
	}

	if a, ok := c.selector.Explicit(); ok {
		c.logger.Infof("trying to connect to %s", a)
		c.enter(gattbrowser.Connecting)
		return []cmd.Command{cmd.Connect{Peer: a}}
	}

	c.logger.Info("link ready, start scanning")
	c.enter(gattbrowser.Scanning)
	return []cmd.Command{
		cmd.SetScanParameters{ScanParams: c.scanParams},
		cmd.StartScan{},
	}
}

func (c *Controller) handleScanReport(e evt.Event) []cmd.Command {
	r := e.(evt.ScanReport)
	if c.Phase() != gattbrowser.Scanning {
		c.logger.Debugf("%s in phase %s, ignoring", e, c.Phase())
		return nil
	}

	c.reporter.Advertisement(r.Advertisement)
	a, ok := c.selector.Accept(r.Advertisement)
	if !ok {
		return nil
	}

	c.logger.Infof("connecting to first advertiser %s", a)
	c.enter(gattbrowser.Connecting)
	return []cmd.Command{cmd.StopScan{}, cmd.Connect{Peer: a}}
}

func (c *Controller) handleConnectionComplete(e evt.Event) []cmd.Command {
	r := e.(evt.ConnectionComplete)
	if c.Phase() != gattbrowser.Connecting {
		c.logger.Warnf("%s in phase %s, ignoring", e, c.Phase())
		return nil
	}

	if r.Status != evt.StatusSuccess {
		c.logger.Errorf("connection to %s failed, status 0x%02x", r.Peer, r.Status)
		c.err = errors.Wrapf(ErrConnectionFailed, "%s: status 0x%02x", r.Peer, r.Status)
		c.session.Terminate()
		return nil
	}

	c.conn = gattbrowser.Connection{Handle: r.Handle, Peer: r.Peer}
	c.logger.Infof("connected %s", c.conn)
	return c.session.Begin(r.Handle)
}

func (c *Controller) handleDisconnectionComplete(e evt.Event) []cmd.Command {
	r := e.(evt.DisconnectionComplete)
	phase := c.Phase()
	if !phase.Connected() {
		c.logger.Warnf("%s in phase %s, ignoring", e, phase)
		return nil
	}
	if r.Handle != c.conn.Handle {
		c.logger.Warnf("%s for unknown connection handle, ignoring", e)
		return nil
	}

	if phase != gattbrowser.Disconnecting {
		c.logger.Warnf("link %s lost in phase %s, reason 0x%02x", c.conn, phase, r.Reason)
		c.err = errors.Wrapf(ErrLinkLost, "%s: reason 0x%02x in phase %s", c.conn, r.Reason, phase)
	} else {
		c.logger.Infof("disconnected %s", c.conn)
	}

	c.reporter.Disconnected(c.conn, r.Reason)
	c.session.Terminate()
	return nil
}

func (c *Controller) enter(p gattbrowser.Phase) {
	if err := c.session.Enter(p); err != nil {
		c.logger.Error(err)
	}
}
