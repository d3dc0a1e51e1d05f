package library

import "math/rand/v2"

// ReplyKind discriminates the three outstanding-operation kinds a ReplyHandle
// can represent.
type ReplyKind int

const (
	ReplyInitiate ReplyKind = iota
	ReplyRelease
	ReplyRequest
)

// ReplyState is a ReplyHandle's terminal-or-pending state.
type ReplyState int

const (
	ReplyPending ReplyState = iota
	ReplyCompleted
	ReplyErrored
	ReplyTimedOut
)

// PendingReply is what the tracker holds for one outstanding request,
// keyed by its correlation id: an arrival deadline and the transition to
// TIMED_OUT. Concrete reply handles (C8) satisfy it through their embedded
// ReplyHandle.
type PendingReply interface {
	// deadline reports the absolute time (ms) after which the reply times out.
	deadline() int64
	// resolveTimedOut transitions the reply to TIMED_OUT.
	resolveTimedOut()
}

// ReplyTracker correlates outbound requests with their eventual inbound
// replies. It is exclusively owned and mutated by the poller thread.
type ReplyTracker struct {
	currentCorrID int64
	pending       map[int64]PendingReply
}

// NewReplyTracker constructs a tracker whose correlation-id counter is
// seeded from a statistically unique (not cryptographically secret) random
// positive value, per the original's
// ThreadLocalRandom.current().nextLong(1, Long.MAX_VALUE).
func NewReplyTracker() *ReplyTracker {
	seed := rand.Int64N(1<<62) + 1
	return &ReplyTracker{
		currentCorrID: seed,
		pending:       make(map[int64]PendingReply),
	}
}

// Register allocates a fresh correlation id and associates reply with it.
// Correlation ids are never reused while their reply is pending.
func (t *ReplyTracker) Register(reply PendingReply) int64 {
	t.currentCorrID++
	id := t.currentCorrID
	t.pending[id] = reply
	return id
}

// Take removes and returns the pending reply registered under id, if any.
// Used by the dispatcher to resolve a reply exactly once.
func (t *ReplyTracker) Take(correlationID int64) (PendingReply, bool) {
	reply, ok := t.pending[correlationID]
	if ok {
		delete(t.pending, correlationID)
	}
	return reply, ok
}

// Peek looks up the pending reply registered under id without removing it.
func (t *ReplyTracker) Peek(correlationID int64) (PendingReply, bool) {
	reply, ok := t.pending[correlationID]
	return reply, ok
}

// SweepTimeouts resolves and removes every pending reply whose deadline has
// passed as of nowMs. Safe to call every tick; entries are deleted in place
// while ranging over the map, which Go defines as safe.
func (t *ReplyTracker) SweepTimeouts(nowMs int64) int {
	count := 0
	for id, reply := range t.pending {
		if nowMs > reply.deadline() {
			reply.resolveTimedOut()
			delete(t.pending, id)
			count++
		}
	}
	return count
}

// Len reports the number of outstanding replies.
func (t *ReplyTracker) Len() int {
	return len(t.pending)
}
