package transport

// ConnectionType discriminates how a connection was established, carried on
// a ManageConnection message.
type ConnectionType int

const (
	Initiator ConnectionType = iota
	Acceptor
)

// LogonStatus discriminates the two Logon message variants the dispatcher
// must distinguish.
type LogonStatus int

const (
	LogonNew LogonStatus = iota
	LogonLibraryNotification
)

// EngineLibraryID is the reserved library id the engine uses for broadcast
// notifications (e.g. LIBRARY_NOTIFICATION logons) that are not addressed to
// a single tenant.
const EngineLibraryID int32 = 0

// LibraryConnect is the outbound handshake message.
type LibraryConnect struct {
	LibraryID     int32
	CorrelationID int64
}

// InitiateConnection is the outbound request to have the engine dial a new
// FIX counterparty on this library's behalf.
type InitiateConnection struct {
	LibraryID          int32
	Host               string
	Port               int
	SenderCompID       string
	SenderSubID        string
	SenderLocationID   string
	TargetCompID       string
	SeqType            int32
	InitialSeqNo       int32
	Username           string
	Password           string
	HeartbeatIntervalS int32
	CorrelationID      int64
}

// ReleaseSession is the outbound request to release ownership of a session
// back to the engine.
type ReleaseSession struct {
	LibraryID           int32
	ConnectionID        int64
	CorrelationID       int64
	State               int32
	HeartbeatIntervalMs int64
	LastSentSeq         int32
	LastReceivedSeq     int32
	Username            string
	Password            string
}

// RequestSession is the outbound request to acquire ownership of a
// previously released session.
type RequestSession struct {
	LibraryID       int32
	SessionID       int64
	CorrelationID   int64
	LastReceivedSeq int32
}

// ManageConnection is inbound, reported by the engine on INITIATOR or
// ACCEPTOR connection establishment.
type ManageConnection struct {
	LibraryID              int32
	ConnectionID           int64
	SessionID              int64
	Type                   ConnectionType
	LastSentSeq            int32
	LastReceivedSeq        int32
	Address                string
	State                  int32
	HeartbeatIntervalS     int32
	ReplyToID              int64
}

// Logon is inbound.
type Logon struct {
	LibraryID        int32
	ConnectionID     int64
	SessionID        int64
	LastSentSeq      int32
	LastReceivedSeq  int32
	Status           LogonStatus
	SenderCompID     string
	SenderSubID      string
	SenderLocationID string
	TargetCompID     string
	Username         string
	Password         string
}

// FixMessage is an inbound application message routed to a session's
// subscriber by connection id.
type FixMessage struct {
	LibraryID    int32
	ConnectionID int64
	SessionID    int64
	MessageType  string
	SeqIndex     int32
	TimestampNs  int64
	Position     int64
	Body         []byte
}

// Disconnect is inbound, reported when the engine tears down a connection.
type Disconnect struct {
	LibraryID    int32
	ConnectionID int64
	Reason       string
}

// ErrorMessage is inbound. It resolves an outstanding reply when ReplyToID
// matches one, and is always passed to the library's error handler; the
// connect loop does not latch it.
type ErrorMessage struct {
	LibraryID int32
	ReplyToID int64
	ErrorType int32
	Message   string
}

// ApplicationHeartbeat is inbound, feeding the liveness detector.
type ApplicationHeartbeat struct {
	LibraryID int32
}

// ReleaseSessionReply is inbound, resolving a pending release operation.
type ReleaseSessionReply struct {
	LibraryID int32
	ReplyToID int64
	Status    int32
}

// RequestSessionReply is inbound, resolving a pending request-session operation.
type RequestSessionReply struct {
	LibraryID int32
	ReplyToID int64
	Status    int32
}

// Catchup is inbound, instructing a subscriber to buffer until messageCount
// replayed fragments have passed.
type Catchup struct {
	LibraryID    int32
	ConnectionID int64
	MessageCount int
}

// NewSentPosition is inbound, reporting the outbound publication's
// send-completed position to the user callback.
type NewSentPosition struct {
	LibraryID int32
	Position  int64
}

// NotLeader is inbound, either rotating to the next configured engine or
// switching to a hinted leader channel.
type NotLeader struct {
	LibraryID      int32
	ReplyToID      int64
	LibraryChannel string
}

// ControlNotification is inbound, carrying the engine's authoritative
// session-id set for this library, used to reconcile the registry.
type ControlNotification struct {
	LibraryID  int32
	SessionIDs []int64
}
