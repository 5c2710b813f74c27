package gap

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
)

// SetAddress fixes the peripheral to connect to.
func (c *Controller) SetAddress(a gattbrowser.Addr) error {
	if a.IsZero() {
		return errors.Wrap(gattbrowser.ErrInvalidAddr, "zero address")
	}
	c.selector.Fix(a)
	return nil
}

// SetCapacity sets how many services the store keeps.
func (c *Controller) SetCapacity(n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid capacity %d", n)
	}
	c.capacity = n
	return nil
}

// SetScanParams overrides default scanning parameters.
func (c *Controller) SetScanParams(p gattbrowser.ScanParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.scanParams = p
	return nil
}

// SetReporter sets the discovery output.
func (c *Controller) SetReporter(r gattbrowser.Reporter) error {
	if r == nil {
		return errors.New("nil reporter")
	}
	c.reporter = r
	return nil
}

// SetLogger sets the parent logger of the controller and session.
func (c *Controller) SetLogger(l gattbrowser.Logger) error {
	c.logger = l
	return nil
}
