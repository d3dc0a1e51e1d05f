package library

import "fmt"

// SessionState is the lifecycle state of a FIX session as tracked by the
// library connector.
type SessionState int

const (
	SessionConnecting SessionState = iota
	SessionConnected
	SessionSentLogon
	SessionActive
	SessionAwaitingLogout
	SessionDisconnected
)

func (s SessionState) String() string {
	switch s {
	case SessionConnecting:
		return "CONNECTING"
	case SessionConnected:
		return "CONNECTED"
	case SessionSentLogon:
		return "SENT_LOGON"
	case SessionActive:
		return "ACTIVE"
	case SessionAwaitingLogout:
		return "AWAITING_LOGOUT"
	case SessionDisconnected:
		return "DISCONNECTED"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// CompleteSessionId is the immutable triple identifying a FIX session: the
// comp-id pair is the FIX-level identity, SurrogateID is the gateway-assigned
// 64-bit identifier unique across sessions.
type CompleteSessionId struct {
	LocalCompID  string
	RemoteCompID string
	SurrogateID  int64
}

func (id CompleteSessionId) String() string {
	return fmt.Sprintf("%s->%s#%d", id.LocalCompID, id.RemoteCompID, id.SurrogateID)
}

// Session is a connected FIX peer as tracked by the library. It is
// exclusively owned by at most one library instance at a time.
type Session struct {
	SurrogateID         int64
	ConnectionID         int64
	State               SessionState
	LastSentSeq         int32
	LastReceivedSeq     int32
	HeartbeatIntervalMs int64
	LibraryConnected    bool

	Identity CompleteSessionId
	Handler  SessionHandler
}

func (s *Session) String() string {
	return fmt.Sprintf("Session{conn=%d surrogate=%d state=%s}", s.ConnectionID, s.SurrogateID, s.State)
}

// close transitions the session to DISCONNECTED. Called exclusively by the
// registry on removal.
func (s *Session) close() {
	s.State = SessionDisconnected
}

// SessionHandler is the user-supplied callback set bound to a session once
// it has been acquired (onSessionAcquired) or created.
type SessionHandler interface {
	// OnMessage is invoked for each FIX application message routed to this
	// session. The flow-control Disposition controls redelivery: returning
	// Abort must be idempotent-safe, since the same fragment is redelivered.
	OnMessage(buf []byte, session *Session, seqIndex int32, msgType string, tsNanos int64, position int64) Disposition
	// OnDisconnect is invoked once the session's connection has been torn
	// down, with the reason reported by the engine.
	OnDisconnect(session *Session, reason string) Disposition
	// OnSlowStatus reports the engine's advisory slow-consumer flag. No
	// inbound control-plane message currently carries this signal -- see
	// DESIGN.md for why the call site isn't wired yet.
	OnSlowStatus(session *Session, isSlow bool)
	// OnTimeout is invoked when a control-notification reconciliation found
	// this session locally owned but absent from the engine's authoritative set.
	OnTimeout(session *Session)
}

// SessionTicker is an optional interface a SessionHandler may implement to
// be driven once per poll tick, matching the original's session.poll(timeInMs)
// call from pollSessions. The session-level heartbeat/resend/logon/logout
// state machine itself is out of scope for this module; this is only the
// hook the core invokes it through.
type SessionTicker interface {
	OnPoll(session *Session, nowMs int64) int
}

// SessionSubscriber wraps a Session together with the bookkeeping needed to
// route inbound fragments to it. It lives exactly as long as the underlying
// connection.
type SessionSubscriber struct {
	session    *Session
	handler    SessionHandler
	catchingUp bool
	catchupLeft int
}

func newSessionSubscriber(session *Session) *SessionSubscriber {
	return &SessionSubscriber{session: session}
}

// Session returns the subscriber's underlying Session.
func (s *SessionSubscriber) Session() *Session { return s.session }

// bindHandler attaches the user-supplied handler once the session has been
// acquired (onLogon, status NEW).
func (s *SessionSubscriber) bindHandler(h SessionHandler) {
	s.handler = h
}

// startCatchup marks the subscriber as catching up until messageCount
// replayed fragments have been observed (Catchup protocol message). It only
// counts them down: onMessage still delivers each one to the handler as it
// arrives, and nothing is buffered.
func (s *SessionSubscriber) startCatchup(messageCount int) {
	s.catchingUp = messageCount > 0
	s.catchupLeft = messageCount
}

// onMessage routes an inbound application message to the bound handler, if
// any, tracking catch-up bookkeeping along the way.
func (s *SessionSubscriber) onMessage(buf []byte, seqIndex int32, msgType string, tsNanos int64, position int64) Disposition {
	if s.catchingUp {
		s.catchupLeft--
		if s.catchupLeft <= 0 {
			s.catchingUp = false
		}
	}
	if s.handler == nil {
		return Continue
	}
	return s.handler.OnMessage(buf, s.session, seqIndex, msgType, tsNanos, position)
}

// onDisconnect forwards the disconnect notification to the bound handler.
func (s *SessionSubscriber) onDisconnect(reason string) Disposition {
	if s.handler == nil {
		return Continue
	}
	return s.handler.OnDisconnect(s.session, reason)
}

// poll drives the bound handler's SessionTicker hook, if implemented,
// called once per poll tick by SessionRegistry.PollSessions.
func (s *SessionSubscriber) poll(nowMs int64) int {
	ticker, ok := s.handler.(SessionTicker)
	if !ok {
		return 0
	}
	return ticker.OnPoll(s.session, nowMs)
}
