package gattbrowser

// Phase is where a browser run is in its scan, connect, discover, disconnect
// sequence.
type Phase int

const (
	AwaitingLink Phase = iota
	Scanning
	Connecting
	DiscoveringServices
	DiscoveringCharacteristics
	Disconnecting
	Terminated
)

var phaseNames = [...]string{
	AwaitingLink:               "AwaitingLink",
	Scanning:                   "Scanning",
	Connecting:                 "Connecting",
	DiscoveringServices:        "DiscoveringServices",
	DiscoveringCharacteristics: "DiscoveringCharacteristics",
	Disconnecting:              "Disconnecting",
	Terminated:                 "Terminated",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "Phase(?)"
	}
	return phaseNames[p]
}

// Connected reports whether a link exists (or existed) in phase p.
func (p Phase) Connected() bool {
	return p >= DiscoveringServices && p < Terminated
}
