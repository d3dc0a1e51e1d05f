package library

import "fmt"

// GatewayError enumerates the error taxonomy an engine or this library can
// raise against an outstanding operation or the library's error callback.
type GatewayError int

const (
	// UnknownSession: the engine referenced a session this library does not own.
	UnknownSession GatewayError = iota + 1
	// UnableToConnect: the connect deadline was exceeded after all reconnect attempts.
	UnableToConnect
	// NotLeader is a control signal, never surfaced through the user error callback.
	NotLeader
	// DuplicateSession: an attempt was made to own a session already owned elsewhere.
	DuplicateSession
	// TimedOut: a ReplyHandle's deadline was exceeded before a reply arrived.
	TimedOut
	// InvalidConfiguration is a programmer error detected at startup or at a
	// precondition violation (e.g. a reply resolved with the wrong kind).
	InvalidConfiguration
	// IndexLapped is internal to the replay index reader; it is recovered
	// transparently by restarting the scan and must never escape that package.
	IndexLapped
)

func (e GatewayError) String() string {
	switch e {
	case UnknownSession:
		return "UNKNOWN_SESSION"
	case UnableToConnect:
		return "UNABLE_TO_CONNECT"
	case NotLeader:
		return "NOT_LEADER"
	case DuplicateSession:
		return "DUPLICATE_SESSION"
	case TimedOut:
		return "TIMED_OUT"
	case InvalidConfiguration:
		return "INVALID_CONFIGURATION"
	case IndexLapped:
		return "INDEX_LAPPED"
	default:
		return fmt.Sprintf("GatewayError(%d)", int(e))
	}
}

// LibraryError carries a GatewayError taxonomy code, the library it relates
// to, and a human-readable message. It satisfies the standard error interface
// so it can be wrapped and matched with errors.As.
type LibraryError struct {
	Type      GatewayError
	LibraryID int32
	Msg       string
}

func (e *LibraryError) Error() string {
	if e.Msg == "" {
		return e.Type.String()
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Msg)
}

// NewLibraryError builds a *LibraryError with the given taxonomy code.
func NewLibraryError(errType GatewayError, libraryID int32, msg string) *LibraryError {
	return &LibraryError{Type: errType, LibraryID: libraryID, Msg: msg}
}

// ErrLibraryClosed is returned by every operation submitted after Close, the
// non-fatal-process rendition of spec's "close-after-close invariant is
// enforced with a fatal error" -- a library cannot terminate its host process.
var ErrLibraryClosed = fmt.Errorf("library has been closed")
