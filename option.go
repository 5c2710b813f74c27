package gattbrowser

// BrowserOption is implemented by the link controller to accept
// configuration options.
type BrowserOption interface {
	SetAddress(Addr) error
	SetCapacity(int) error
	SetScanParams(ScanParams) error
	SetReporter(Reporter) error
	SetLogger(Logger) error
}

// An Option is a configuration function, which configures the browser.
type Option func(BrowserOption) error

// OptAddress fixes the peripheral to connect to; no scan is started.
func OptAddress(a Addr) Option {
	return func(opt BrowserOption) error {
		return opt.SetAddress(a)
	}
}

// OptCapacity overrides how many services are kept per run.
func OptCapacity(n int) Option {
	return func(opt BrowserOption) error {
		return opt.SetCapacity(n)
	}
}

// OptScanParams overrides default scanning parameters.
func OptScanParams(p ScanParams) Option {
	return func(opt BrowserOption) error {
		return opt.SetScanParams(p)
	}
}

// OptReporter sets where discovery output goes.
func OptReporter(r Reporter) Option {
	return func(opt BrowserOption) error {
		return opt.SetReporter(r)
	}
}

// OptLogger sets the logger used by the browser components.
func OptLogger(l Logger) Option {
	return func(opt BrowserOption) error {
		return opt.SetLogger(l)
	}
}
