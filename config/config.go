// Package config holds the settings of a browser run, loadable from YAML.
package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rigado/gattbrowser"
	"github.com/rigado/gattbrowser/store"
	"gopkg.in/yaml.v3"
)

const (
	TransportNative = "native"
	TransportSim    = "sim"
)

// Config is the on-disk and command line configuration.
type Config struct {
	// Address fixes the peripheral; empty means connect to the first
	// advertiser.
	Address     string                 `yaml:"address"`
	AddressType string                 `yaml:"address_type"`
	Capacity    int                    `yaml:"capacity"`
	Scan        gattbrowser.ScanParams `yaml:"scan"`
	LogLevel    string                 `yaml:"log_level"`

	Transport string `yaml:"transport"`
	Fixture   string `yaml:"fixture"`

	JSON  bool   `yaml:"json"`
	Cache string `yaml:"cache"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		AddressType: gattbrowser.AddrPublic.String(),
		Capacity:    store.DefaultCapacity,
		Scan:        gattbrowser.DefaultScanParams(),
		LogLevel:    "info",
		Transport:   TransportNative,
	}
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, errors.Wrapf(err, "decode config %s", path)
	}
	return c, nil
}

// Validate checks everything but the address, which degrades to scanning
// when malformed.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return errors.Errorf("invalid capacity %d", c.Capacity)
	}
	if err := c.Scan.Validate(); err != nil {
		return errors.Wrap(err, "scan")
	}
	if _, err := addrType(c.AddressType); err != nil {
		return err
	}

	switch c.Transport {
	case TransportNative:
	case TransportSim:
		if c.Fixture == "" {
			return errors.New("sim transport needs a fixture")
		}
	default:
		return errors.Errorf("unknown transport %q", c.Transport)
	}
	return nil
}

// Target returns the configured peripheral address. ok is false when none is
// set or the address does not parse, in which case the run scans.
func (c Config) Target(l gattbrowser.Logger) (a gattbrowser.Addr, ok bool) {
	if c.Address == "" {
		return a, false
	}

	a, err := gattbrowser.ParseAddr(c.Address)
	if err == nil && a.IsZero() {
		err = errors.Wrap(gattbrowser.ErrInvalidAddr, "zero address")
	}
	if err != nil {
		if l == nil {
			l = gattbrowser.GetLogger()
		}
		l.Warnf("%v, scanning for the first advertiser instead", err)
		return gattbrowser.Addr{}, false
	}

	t, _ := addrType(c.AddressType)
	return a.WithType(t), true
}

// Options turns c into browser options; r and l may be nil.
func (c Config) Options(r gattbrowser.Reporter, l gattbrowser.Logger) []gattbrowser.Option {
	opts := []gattbrowser.Option{
		gattbrowser.OptCapacity(c.Capacity),
		gattbrowser.OptScanParams(c.Scan),
	}
	if a, ok := c.Target(l); ok {
		opts = append(opts, gattbrowser.OptAddress(a))
	}
	if r != nil {
		opts = append(opts, gattbrowser.OptReporter(r))
	}
	if l != nil {
		opts = append(opts, gattbrowser.OptLogger(l))
	}
	return opts
}

func addrType(s string) (gattbrowser.AddrType, error) {
	switch s {
	case "", gattbrowser.AddrPublic.String():
		return gattbrowser.AddrPublic, nil
	case gattbrowser.AddrRandom.String():
		return gattbrowser.AddrRandom, nil
	}
	return 0, errors.Errorf("unknown address type %q", s)
}
