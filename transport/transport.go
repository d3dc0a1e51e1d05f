// Package transport defines the minimal publish/subscribe contract the
// library connector depends on. The engine and the library communicate
// through a controlled-flow, log-structured transport where every message
// carries a monotonically increasing stream position; this package names
// that contract without committing to a wire format. Concrete
// implementations live in sibling packages (shmtransport, udptransport).
package transport

import "fmt"

// Disposition is the flow-control result a FragmentHandler returns for each
// fragment it processes.
type Disposition int

const (
	// Continue indicates the fragment was consumed; the subscription may
	// advance past it.
	Continue Disposition = iota
	// Abort indicates the fragment was back-pressured; the subscription
	// must redeliver the same fragment on the next poll. Handlers that
	// return Abort must be idempotent with respect to their own side effects,
	// since the same fragment will be replayed verbatim.
	Abort
)

func (d Disposition) String() string {
	if d == Abort {
		return "ABORT"
	}
	return "CONTINUE"
}

// FragmentHandler processes one inbound fragment and reports whether it was
// consumed (Continue) or must be redelivered (Abort).
type FragmentHandler func(fragment []byte) Disposition

// Publication offers fragments for publication on an outbound channel.
// Offer returns the new stream position on success, or a negative value if
// the transport's flow-control window is full -- a negative return is not an
// error, it is a "retry me" signal the caller must honor within its own
// bounded retry window.
type Publication interface {
	// Offer publishes a single fragment. Returns the resulting stream
	// position (>= 0) on success, a negative value if back-pressured, or a
	// non-nil error on unrecoverable transport failure.
	Offer(fragment []byte) (int64, error)
	// Close releases the publication's resources.
	Close() error
}

// Subscription drains inbound fragments from a channel, dispatching each to
// handler in publication order until fragmentLimit fragments have been
// processed or no more are available.
type Subscription interface {
	// Poll drains up to fragmentLimit fragments, invoking handler for each.
	// Returns the number of fragments actually consumed (a fragment on which
	// handler returned Abort counts as not consumed and is redelivered on
	// the next call).
	Poll(handler FragmentHandler, fragmentLimit int) (int, error)
	// Close releases the subscription's resources.
	Close() error
}

// ErrClosed is returned by Offer/Poll once the owning transport has been closed.
var ErrClosed = fmt.Errorf("transport: closed")
