package library

import "github.com/Kost1s/artio/transport"

// Disposition is the flow-control result dispatcher handlers and
// SessionHandler callbacks return, re-exported from the transport package so
// user code never has to import it directly for this one type.
type Disposition = transport.Disposition

const (
	Continue = transport.Continue
	Abort    = transport.Abort
)
