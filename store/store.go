// Package store keeps the services found during one discovery run.
package store

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
)

// DefaultCapacity is the number of services kept when no capacity is given.
const DefaultCapacity = 40

// ErrCapacityExceeded is returned by Append once the store is full.
var ErrCapacityExceeded = errors.New("service store full")

// Store is an append-only, fixed capacity, ordered list of services.
type Store struct {
	svcs []gattbrowser.Service
}

// New returns an empty store holding at most capacity services.
// A capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{svcs: make([]gattbrowser.Service, 0, capacity)}
}

// Append adds s at the end. A full store is left untouched.
func (s *Store) Append(svc gattbrowser.Service) error {
	if len(s.svcs) == cap(s.svcs) {
		return errors.Wrapf(ErrCapacityExceeded, "capacity %d, dropping %s", cap(s.svcs), svc)
	}
	s.svcs = append(s.svcs, svc)
	return nil
}

// Get returns the i-th service. It panics if i is out of range: callers
// index only what they appended.
func (s *Store) Get(i int) gattbrowser.Service {
	if i < 0 || i >= len(s.svcs) {
		panic(fmt.Sprintf("store: index %d out of range [0,%d)", i, len(s.svcs)))
	}
	return s.svcs[i]
}

// Len returns the number of stored services.
func (s *Store) Len() int { return len(s.svcs) }

// Cap returns the capacity the store was created with.
func (s *Store) Cap() int { return cap(s.svcs) }

// Services returns a copy of the stored services in append order.
func (s *Store) Services() []gattbrowser.Service {
	out := make([]gattbrowser.Service, len(s.svcs))
	copy(out, s.svcs)
	return out
}
