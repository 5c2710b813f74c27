package gattbrowser

// Reporter receives what a browser run observes, in the order it is observed.
// Implementations must not block; they run on the event loop.
type Reporter interface {
	Advertisement(Advertisement)
	Service(Service)

	// CharacteristicsOf is called right before the characteristics of s are
	// queried.
	CharacteristicsOf(s Service)
	Characteristic(Characteristic)
	Disconnected(c Connection, reason uint8)
}

// MultiReporter fans out to each of rr in order.
func MultiReporter(rr ...Reporter) Reporter {
	out := make(multiReporter, 0, len(rr))
	for _, r := range rr {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multiReporter []Reporter

func (m multiReporter) Advertisement(a Advertisement) {
	for _, r := range m {
		r.Advertisement(a)
	}
}

func (m multiReporter) Service(s Service) {
	for _, r := range m {
		r.Service(s)
	}
}

func (m multiReporter) CharacteristicsOf(s Service) {
	for _, r := range m {
		r.CharacteristicsOf(s)
	}
}

func (m multiReporter) Characteristic(c Characteristic) {
	for _, r := range m {
		r.Characteristic(c)
	}
}

func (m multiReporter) Disconnected(c Connection, reason uint8) {
	for _, r := range m {
		r.Disconnected(c, reason)
	}
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Advertisement(Advertisement) {}
func (NopReporter) Service(Service) {}
func (NopReporter) CharacteristicsOf(Service) {}
func (NopReporter) Characteristic(Characteristic) {}
func (NopReporter) Disconnected(Connection, uint8) {}
