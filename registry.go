package library

import "fmt"

// SessionRegistry maps connectionId -> SessionSubscriber and maintains an
// insertion-order sequence of active Sessions, polled once per tick. It is
// exclusively mutated by the poller's owning thread; there are no locks.
type SessionRegistry struct {
	byConnection map[int64]*SessionSubscriber
	sessions     []*Session
}

// NewSessionRegistry constructs an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byConnection: make(map[int64]*SessionSubscriber),
		sessions:     make([]*Session, 0, 16),
	}
}

// Add inserts a new subscriber into both structures. Duplicate insertion (a
// connection id already present) is a programming error and panics, per
// spec's invariant that a connectionId maps to at most one live subscriber.
func (r *SessionRegistry) Add(sub *SessionSubscriber) {
	connID := sub.session.ConnectionID
	if _, exists := r.byConnection[connID]; exists {
		panic(fmt.Sprintf("library: duplicate session registration for connection %d", connID))
	}
	r.byConnection[connID] = sub
	r.sessions = append(r.sessions, sub.session)
}

// Get looks up the subscriber owning a connection id.
func (r *SessionRegistry) Get(connectionID int64) (*SessionSubscriber, bool) {
	sub, ok := r.byConnection[connectionID]
	return sub, ok
}

// Remove closes and removes the session owning connectionID from both
// structures. Returns false if no such session exists.
func (r *SessionRegistry) Remove(connectionID int64) bool {
	sub, ok := r.byConnection[connectionID]
	if !ok {
		return false
	}
	delete(r.byConnection, connectionID)
	sub.session.close()
	r.removeFromSequence(sub.session)
	return true
}

// Reinsert restores a subscriber that was tentatively removed because its
// disconnect handler returned Abort, so the fragment can be redelivered
// idempotently on the next poll.
func (r *SessionRegistry) Reinsert(sub *SessionSubscriber) {
	r.byConnection[sub.session.ConnectionID] = sub
}

// Sessions returns the live, insertion-ordered session sequence. Callers
// must not mutate the returned slice.
func (r *SessionRegistry) Sessions() []*Session {
	return r.sessions
}

// Len reports the number of sessions currently owned by this library instance.
func (r *SessionRegistry) Len() int {
	return len(r.sessions)
}

// PollSessions drives each owned session's per-tick hook exactly once, in
// insertion order, mirroring the original's pollSessions loop over its
// session sequence and summing each session's reported work. The FIX
// session-level heartbeat/resend state machine itself lives outside this
// module; PollSessions is only the call site the core drives it through
// once per poll, via SessionTicker.
func (r *SessionRegistry) PollSessions(nowMs int64) int {
	total := 0
	for _, session := range r.sessions {
		sub, ok := r.byConnection[session.ConnectionID]
		if !ok {
			continue
		}
		total += sub.poll(nowMs)
	}
	return total
}

func (r *SessionRegistry) removeFromSequence(session *Session) {
	for i, s := range r.sessions {
		if s == session {
			// Shift the tail down by one over the removed slot, matching the
			// original's indexed-removal loop over a mutable ArrayList.
			copy(r.sessions[i:], r.sessions[i+1:])
			r.sessions = r.sessions[:len(r.sessions)-1]
			return
		}
	}
}

// Reconcile applies a ControlNotification's authoritative session-id set:
// any locally owned session absent from ids is timed out and closed; any id
// present in ids but not locally owned is reported via onUnknown.
//
// Implemented as a single mark-then-compact pass over the session sequence,
// per the original's onControlNotification, which mutates its ArrayList
// in place while iterating it with an explicit index.
func (r *SessionRegistry) Reconcile(ids []int64, onUnknown func(sessionID int64)) {
	present := make(map[int64]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	kept := r.sessions[:0]
	for _, session := range r.sessions {
		if present[session.SurrogateID] {
			kept = append(kept, session)
			delete(present, session.SurrogateID)
			continue
		}

		// Locally owned but absent from the engine's set: time out and close.
		sub, ok := r.byConnection[session.ConnectionID]
		if ok {
			delete(r.byConnection, session.ConnectionID)
			if sub.handler != nil {
				sub.handler.OnTimeout(session)
			}
		}
		session.close()
	}
	r.sessions = kept

	// Ids the engine thinks we own but that we don't.
	for id := range present {
		onUnknown(id)
	}
}
