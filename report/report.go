// Package report collects the outcome of a browser run into a profile that
// can be written as JSON or kept in a cache file.
package report

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Profile is the attribute layout found on one peripheral.
type Profile struct {
	Address          string           `json:"address"`
	AddressType      string           `json:"addressType"`
	Services         []ServiceProfile `json:"services"`
	DisconnectReason uint8            `json:"disconnectReason"`
}

// ServiceProfile is a service with the characteristics found in it.
type ServiceProfile struct {
	gattbrowser.Service
	Characteristics []gattbrowser.Characteristic `json:"characteristics"`
}

// Collector is a gattbrowser.Reporter building a Profile. When the peer
// disconnects the profile is written to the configured outputs.
type Collector struct {
	gattbrowser.NopReporter

	profile Profile
	current int
	done    bool

	out     io.Writer
	cache   *Cache
	replace bool
	err     error
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithWriter writes the profile as indented JSON to w.
func WithWriter(w io.Writer) CollectorOption {
	return func(c *Collector) { c.out = w }
}

// WithCache stores the profile in cache, replacing any earlier one if
// replace is set.
func WithCache(cache *Cache, replace bool) CollectorOption {
	return func(c *Collector) {
		c.cache = cache
		c.replace = replace
	}
}

func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{current: -1}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Collector) Service(s gattbrowser.Service) {
	c.profile.Services = append(c.profile.Services, ServiceProfile{Service: s})
}

func (c *Collector) CharacteristicsOf(s gattbrowser.Service) {
	c.current = -1
	for i := range c.profile.Services {
		if c.profile.Services[i].Service == s {
			c.current = i
			return
		}
	}
}

func (c *Collector) Characteristic(ch gattbrowser.Characteristic) {
	if c.current < 0 {
		return
	}
	sp := &c.profile.Services[c.current]
	sp.Characteristics = append(sp.Characteristics, ch)
}

func (c *Collector) Disconnected(conn gattbrowser.Connection, reason uint8) {
	c.profile.Address = conn.Peer.String()
	c.profile.AddressType = conn.Peer.Type.String()
	c.profile.DisconnectReason = reason
	c.done = true

	if c.out != nil {
		if err := c.Encode(c.out); err != nil {
			c.setErr(errors.Wrap(err, "write profile"))
		}
	}
	if c.cache != nil {
		if err := c.cache.Store(conn.Peer, c.profile, c.replace); err != nil {
			c.setErr(errors.Wrap(err, "cache profile"))
		}
	}
}

// Profile returns what was collected so far.
func (c *Collector) Profile() Profile { return c.profile }

// Done reports whether the peer has disconnected.
func (c *Collector) Done() bool { return c.done }

// Err returns the first output error.
func (c *Collector) Err() error { return c.err }

// Encode writes the profile as indented JSON.
func (c *Collector) Encode(w io.Writer) error {
	b, err := json.MarshalIndent(c.profile, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func (c *Collector) setErr(err error) {
	if c.err == nil {
		c.err = err
	}
}
