package library

// ReplyHandle is the common base every outstanding-operation type embeds. It
// tracks the correlation id it was registered under, its arrival deadline,
// and its terminal state, matching the original's three LibraryReply
// subclasses (InitiateSessionReply, ReleaseSessionReply, RequestSessionReply)
// which all extend a common timeout/state bookkeeping base.
type ReplyHandle struct {
	correlationID int64
	deadlineMs    int64
	state         ReplyState
	errMessage    string
}

func (r *ReplyHandle) deadline() int64 { return r.deadlineMs }

func (r *ReplyHandle) resolveTimedOut() { r.state = ReplyTimedOut }

func (r *ReplyHandle) resolveErrored(message string) {
	r.state = ReplyErrored
	r.errMessage = message
}

func (r *ReplyHandle) resolveCompleted() { r.state = ReplyCompleted }

// State reports the handle's current terminal-or-pending state.
func (r *ReplyHandle) State() ReplyState { return r.state }

// Error reports the error message attached by resolveErrored, if any.
func (r *ReplyHandle) Error() string { return r.errMessage }

// CorrelationID reports the id this handle was registered under.
func (r *ReplyHandle) CorrelationID() int64 { return r.correlationID }

func newReplyHandle(correlationID, nowMs, timeoutMs int64) ReplyHandle {
	return ReplyHandle{correlationID: correlationID, deadlineMs: nowMs + timeoutMs, state: ReplyPending}
}

// InitiateSessionReply tracks an outstanding InitiateConnection request;
// it resolves with the newly registered Session as soon as the matching
// ManageConnection is observed, before any Logon(NEW) acquires it.
type InitiateSessionReply struct {
	ReplyHandle
	Session *Session
}

var _ PendingReply = (*InitiateSessionReply)(nil)

func newInitiateSessionReply(correlationID, nowMs, timeoutMs int64) *InitiateSessionReply {
	return &InitiateSessionReply{ReplyHandle: newReplyHandle(correlationID, nowMs, timeoutMs)}
}

func (r *InitiateSessionReply) resolveWithSession(session *Session) {
	r.Session = session
	r.resolveCompleted()
}

// ReleaseSessionReply tracks an outstanding release-to-engine request.
type ReleaseSessionReply struct {
	ReplyHandle
}

var _ PendingReply = (*ReleaseSessionReply)(nil)

func newReleaseSessionReply(correlationID, nowMs, timeoutMs int64) *ReleaseSessionReply {
	return &ReleaseSessionReply{ReplyHandle: newReplyHandle(correlationID, nowMs, timeoutMs)}
}

// RequestSessionReply tracks an outstanding acquire-from-engine request.
type RequestSessionReply struct {
	ReplyHandle
	Session *Session
}

var _ PendingReply = (*RequestSessionReply)(nil)

func newRequestSessionReply(correlationID, nowMs, timeoutMs int64) *RequestSessionReply {
	return &RequestSessionReply{ReplyHandle: newReplyHandle(correlationID, nowMs, timeoutMs)}
}

func (r *RequestSessionReply) resolveWithSession(session *Session) {
	r.Session = session
	r.resolveCompleted()
}
