package gattbrowser

import "fmt"

const (
	LEScanTypePassive = 0x00
	LEScanTypeActive  = 0x01

	LEScanIntervalMin = 0x0004
	LEScanIntervalMax = 0x4000
	LEScanWindowMin   = 0x0004
	LEScanWindowMax   = 0x4000
)

// ScanParams mirrors the fields of LE Set Scan Parameters that a browser run
// controls. Interval and window are in units of 0.625 msec.
type ScanParams struct {
	Type     uint8  `yaml:"type" json:"type"`
	Interval uint16 `yaml:"interval" json:"interval"`
	Window   uint16 `yaml:"window" json:"window"`
}

// DefaultScanParams is a passive scan with a 30 msec interval and window.
func DefaultScanParams() ScanParams {
	return ScanParams{
		Type:     LEScanTypePassive,
		Interval: 0x0030,
		Window:   0x0030,
	}
}

// Validate checks p against the ranges allowed by the controller.
func (p ScanParams) Validate() error {
	switch {
	case p.Type != LEScanTypeActive && p.Type != LEScanTypePassive:
		return fmt.Errorf("invalid LEScanType %v", p.Type)

	case p.Interval < LEScanIntervalMin || p.Interval > LEScanIntervalMax:
		return fmt.Errorf("invalid LEScanInterval %v", p.Interval)

	case p.Window < LEScanWindowMin || p.Window > LEScanWindowMax:
		return fmt.Errorf("invalid LEScanWindow %v", p.Window)

	case p.Window > p.Interval:
		return fmt.Errorf("LEScanWindow %v > LEScanInterval %v", p.Window, p.Interval)
	}

	return nil
}
