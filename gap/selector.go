package gap

import "github.com/rigado/gattbrowser"

// Selector picks the peripheral a run connects to: the address given at
// startup or, failing that, whoever advertises first.
type Selector struct {
	explicit    gattbrowser.Addr
	hasExplicit bool

	accepted bool
	chosen   gattbrowser.Addr
}

// NewSelector returns a selector that scans for the first advertiser.
func NewSelector() *Selector {
	return &Selector{}
}

// Fix makes a the target; no scan report will ever be accepted.
func (s *Selector) Fix(a gattbrowser.Addr) {
	s.explicit = a
	s.hasExplicit = true
}

// Explicit returns the fixed target, if there is one.
func (s *Selector) Explicit() (gattbrowser.Addr, bool) {
	return s.explicit, s.hasExplicit
}

// Accept offers a scan report. The first report is accepted without any
// filtering; every later one, or any report when a target is fixed, is not.
func (s *Selector) Accept(a gattbrowser.Advertisement) (gattbrowser.Addr, bool) {
	if s.hasExplicit || s.accepted {
		return gattbrowser.Addr{}, false
	}
	s.accepted = true
	s.chosen = a.Addr
	return s.chosen, true
}

// Chosen returns the address accepted from a scan report, if any.
func (s *Selector) Chosen() (gattbrowser.Addr, bool) {
	return s.chosen, s.accepted
}
