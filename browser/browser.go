// Package browser runs one scan, connect, discover, disconnect cycle against
// a Transport.
package browser

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
	"github.com/rigado/gattbrowser/cmd"
	"github.com/rigado/gattbrowser/evt"
	"github.com/rigado/gattbrowser/gap"
)

// ErrTransportClosed is returned by Run when the event stream ends before the
// run does.
var ErrTransportClosed = errors.New("transport closed")

// Transport carries commands to a BLE controller and its events back.
// Events for a connection must be delivered in the order they occurred.
type Transport interface {
	// Start brings the controller up. LinkReady is delivered once usable.
	Start() error

	Events() <-chan evt.Event

	// Send queues c; it must not block on the controller.
	Send(c cmd.Command) error

	Close() error
}

// Browser owns a transport and the controller fed by its events.
type Browser struct {
	t      Transport
	ctrl   *gap.Controller
	logger gattbrowser.Logger
}

// New returns a browser over t configured by opts.
func New(t Transport, opts ...gattbrowser.Option) (*Browser, error) {
	if t == nil {
		return nil, errors.New("nil transport")
	}

	ctrl, err := gap.NewController(opts...)
	if err != nil {
		return nil, err
	}
	return &Browser{
		t:      t,
		ctrl:   ctrl,
		logger: gattbrowser.ComponentLogger(ctrl.Logger(), "browser"),
	}, nil
}

// Controller returns the controller the browser drives.
func (b *Browser) Controller() *gap.Controller { return b.ctrl }

// Run starts the transport and dispatches its events until the peripheral
// disconnects, the run fails, or ctx is done. The transport is closed on
// return. A clean run returns nil.
func (b *Browser) Run(ctx context.Context) error {
	if err := b.t.Start(); err != nil {
		return errors.Wrap(err, "can't start transport")
	}
	defer func() {
		if err := b.t.Close(); err != nil {
			b.logger.Warnf("close transport: %v", err)
		}
	}()

	events := b.t.Events()
	for {
		if err := ctx.Err(); err != nil {
			b.logger.Infof("stopped in phase %s", b.ctrl.Phase())
			return err
		}

		select {
		case <-ctx.Done():
			continue

		case e, ok := <-events:
			if !ok {
				return errors.Wrapf(ErrTransportClosed, "in phase %s", b.ctrl.Phase())
			}
			b.logger.Debugf("<- %s", e)

			for _, c := range b.ctrl.Handle(e) {
				b.logger.Debugf("-> %s", c)
				if err := b.t.Send(c); err != nil {
					return errors.Wrapf(err, "can't send %s", c)
				}
			}

			if b.ctrl.Done() {
				return b.ctrl.Err()
			}
		}
	}
}
