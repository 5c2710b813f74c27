package gattbrowser

import "fmt"

// Connection identifies the single link a browser run holds. The handle is
// only meaningful between connection complete and disconnection complete.
type Connection struct {
	Handle uint16
	Peer   Addr
}

func (c Connection) String() string {
	return fmt.Sprintf("0x%04x (%s)", c.Handle, c.Peer)
}
