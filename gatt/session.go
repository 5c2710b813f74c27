// Package gatt walks a connected peripheral's primary services and their
// characteristics, one query at a time.
package gatt

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
	"github.com/rigado/gattbrowser/cmd"
	"github.com/rigado/gattbrowser/evt"
	"github.com/rigado/gattbrowser/store"
)

type handlerFn func(e evt.Event) []cmd.Command

// Session is the discovery state of one browser run. It is not safe for
// concurrent use; a single event loop owns it.
type Session struct {
	phase  gattbrowser.Phase
	handle uint16
	store  *store.Store

	// cursor indexes the service whose characteristics are being queried.
	cursor int

	// pending is set while a discovery request is outstanding.
	pending bool
	dropped int

	handlers map[evt.Code]handlerFn
	reporter gattbrowser.Reporter
	logger   gattbrowser.Logger
}

// NewSession returns a session in AwaitingLink that stores services in st.
func NewSession(st *store.Store, r gattbrowser.Reporter, l gattbrowser.Logger) *Session {
	if r == nil {
		r = gattbrowser.NopReporter{}
	}
	s := &Session{
		phase:    gattbrowser.AwaitingLink,
		store:    st,
		reporter: r,
		logger:   gattbrowser.ComponentLogger(l, "gatt"),
	}
	s.handlers = map[evt.Code]handlerFn{
		evt.ServiceQueryResultCode:        s.handleServiceQueryResult,
		evt.CharacteristicQueryResultCode: s.handleCharacteristicQueryResult,
		evt.QueryCompleteCode:             s.handleQueryComplete,
	}
	return s
}

// Phase returns the current phase.
func (s *Session) Phase() gattbrowser.Phase { return s.phase }

// ConnHandle returns the connection handle discovery runs on.
func (s *Session) ConnHandle() uint16 { return s.handle }

// Cursor returns the index of the service being (or last) queried for
// characteristics.
func (s *Session) Cursor() int { return s.cursor }

// Pending reports whether a discovery request is outstanding.
func (s *Session) Pending() bool { return s.pending }

// Dropped returns how many services did not fit in the store.
func (s *Session) Dropped() int { return s.dropped }

// Store returns the services kept for characteristic discovery.
func (s *Session) Store() *store.Store { return s.store }

// Enter records a link-level phase on behalf of the link controller. Only
// phases before discovery are accepted.
func (s *Session) Enter(p gattbrowser.Phase) error {
	if p > gattbrowser.Connecting {
		return errors.Errorf("phase %s is entered by the session itself", p)
	}
	if p < s.phase {
		return errors.Errorf("can't go back from %s to %s", s.phase, p)
	}
	s.logger.Debugf("phase %s -> %s", s.phase, p)
	s.phase = p
	return nil
}

// Begin starts service discovery on the connection identified by handle.
func (s *Session) Begin(handle uint16) []cmd.Command {
	if s.phase != gattbrowser.Connecting {
		s.logger.Warnf("begin discovery in phase %s, ignoring", s.phase)
		return nil
	}
	s.handle = handle
	s.setPhase(gattbrowser.DiscoveringServices)
	return s.issue(cmd.DiscoverPrimaryServices{Handle: handle})
}

// Terminate ends the session. Later events are ignored.
func (s *Session) Terminate() {
	s.setPhase(gattbrowser.Terminated)
	s.pending = false
}

// Handle feeds a GATT client event to the session and returns the requests
// to issue next.
func (s *Session) Handle(e evt.Event) []cmd.Command {
	f, ok := s.handlers[e.Code()]
	if !ok {
		s.logger.Debugf("not a discovery event: %s", e)
		return nil
	}
	return f(e)
}

func (s *Session) handleServiceQueryResult(e evt.Event) []cmd.Command {
	r := e.(evt.ServiceQueryResult)
	if !s.expect(gattbrowser.DiscoveringServices, e) || !s.onLink(r.Handle, e) {
		return nil
	}

	// every result is reported, browsed or not
	s.reporter.Service(r.Service)
	if err := s.store.Append(r.Service); err != nil {
		s.dropped++
		s.logger.Warnf("service %s not browsed: %v", r.Service, err)
	}
	return nil
}

func (s *Session) handleCharacteristicQueryResult(e evt.Event) []cmd.Command {
	r := e.(evt.CharacteristicQueryResult)
	if !s.expect(gattbrowser.DiscoveringCharacteristics, e) || !s.onLink(r.Handle, e) {
		return nil
	}
	s.reporter.Characteristic(r.Characteristic)
	return nil
}

func (s *Session) handleQueryComplete(e evt.Event) []cmd.Command {
	r := e.(evt.QueryComplete)
	if !s.onLink(r.Handle, e) {
		return nil
	}
	if !s.pending {
		s.logger.Warnf("%s with no query outstanding (phase %s), ignoring", e, s.phase)
		return nil
	}
	s.pending = false

	if r.Status != evt.StatusSuccess {
		s.logger.Warnf("query failed with status 0x%02x in phase %s, continuing", r.Status, s.phase)
	}

	switch s.phase {
	case gattbrowser.DiscoveringServices:
		if s.dropped > 0 {
			s.logger.Warnf("%d services did not fit, browsing the first %d", s.dropped, s.store.Len())
		}
		if s.store.Len() == 0 {
			s.logger.Info("no primary services found")
			return s.disconnect()
		}
		s.cursor = 0
		s.setPhase(gattbrowser.DiscoveringCharacteristics)
		return s.discoverCharacteristics()

	case gattbrowser.DiscoveringCharacteristics:
		if s.cursor+1 < s.store.Len() {
			s.cursor++
			return s.discoverCharacteristics()
		}
		return s.disconnect()

	default:
		s.logger.Warnf("%s in phase %s, ignoring", e, s.phase)
		return nil
	}
}

func (s *Session) discoverCharacteristics() []cmd.Command {
	svc := s.store.Get(s.cursor)
	s.logger.Infof("characteristics for service %d/%d: %s", s.cursor+1, s.store.Len(), svc)
	s.reporter.CharacteristicsOf(svc)
	return s.issue(cmd.DiscoverCharacteristics{Handle: s.handle, Service: svc})
}

func (s *Session) disconnect() []cmd.Command {
	s.setPhase(gattbrowser.Disconnecting)
	return []cmd.Command{cmd.Disconnect{Handle: s.handle, Reason: evt.ErrRemoteUser}}
}

// issue marks c outstanding. Callers only reach it from Begin or from a
// query-complete handler, so a query is never issued on top of another.
func (s *Session) issue(c cmd.Command) []cmd.Command {
	if s.pending {
		panic(fmt.Sprintf("gatt: %s issued while a query is outstanding", c))
	}
	s.pending = true
	return []cmd.Command{c}
}

func (s *Session) expect(p gattbrowser.Phase, e evt.Event) bool {
	if s.phase != p {
		s.logger.Warnf("%s in phase %s, ignoring", e, s.phase)
		return false
	}
	return true
}

func (s *Session) onLink(handle uint16, e evt.Event) bool {
	if handle != s.handle {
		s.logger.Warnf("%s for unknown connection handle, ignoring", e)
		return false
	}
	return true
}

func (s *Session) setPhase(p gattbrowser.Phase) {
	if p != s.phase {
		s.logger.Debugf("phase %s -> %s", s.phase, p)
	}
	s.phase = p
}
