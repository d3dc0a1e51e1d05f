package library

import "testing"

func newTestSubscriber(connectionID, surrogateID int64) *SessionSubscriber {
	return newSessionSubscriber(&Session{ConnectionID: connectionID, SurrogateID: surrogateID, State: SessionActive})
}

func TestSessionRegistryAddGetRemove(t *testing.T) {
	r := NewSessionRegistry()
	sub := newTestSubscriber(1, 100)
	r.Add(sub)

	if r.Len() != 1 {
		t.Fatalf("expected Len 1, got %d", r.Len())
	}
	got, ok := r.Get(1)
	if !ok || got != sub {
		t.Fatalf("expected to find subscriber for connection 1")
	}

	if !r.Remove(1) {
		t.Fatalf("expected Remove to report success")
	}
	if r.Len() != 0 {
		t.Fatalf("expected Len 0 after remove, got %d", r.Len())
	}
	if _, ok := r.Get(1); ok {
		t.Fatalf("expected connection 1 to be gone after remove")
	}
	if sub.session.State != SessionDisconnected {
		t.Fatalf("expected removed session to be DISCONNECTED, got %s", sub.session.State)
	}
	if r.Remove(1) {
		t.Fatalf("expected second Remove of the same connection to report false")
	}
}

func TestSessionRegistryAddDuplicatePanics(t *testing.T) {
	r := NewSessionRegistry()
	r.Add(newTestSubscriber(1, 100))

	defer func() {
		if recover() == nil {
			t.Fatalf("expected duplicate Add to panic")
		}
	}()
	r.Add(newTestSubscriber(1, 200))
}

func TestSessionRegistryReinsertAfterAbort(t *testing.T) {
	r := NewSessionRegistry()
	sub := newTestSubscriber(1, 100)
	r.Add(sub)

	r.Remove(1)
	r.Reinsert(sub)

	got, ok := r.Get(1)
	if !ok || got != sub {
		t.Fatalf("expected reinsert to restore lookup by connection id")
	}
}

// TestControlNotificationReconciliation drives SessionRegistry.Reconcile
// through the three cases a ControlNotification can produce: a locally
// owned session confirmed present, a locally owned session absent from the
// engine's set (timed out and closed), and an id the engine claims this
// library owns that it does not (reported via the onUnknown callback).
func TestControlNotificationReconciliation(t *testing.T) {
	r := NewSessionRegistry()

	keep := newTestSubscriber(1, 100)
	var timedOut bool
	keep.handler = nil
	r.Add(keep)

	drop := newTestSubscriber(2, 200)
	handler := &recordingSessionHandler{}
	drop.bindHandler(handler)
	r.Add(drop)

	var unknownIDs []int64
	r.Reconcile([]int64{100, 999}, func(sessionID int64) {
		unknownIDs = append(unknownIDs, sessionID)
	})

	if r.Len() != 1 {
		t.Fatalf("expected 1 session to survive reconciliation, got %d", r.Len())
	}
	if _, ok := r.Get(1); !ok {
		t.Fatalf("expected connection 1 (surrogate 100) to survive")
	}
	if _, ok := r.Get(2); ok {
		t.Fatalf("expected connection 2 (surrogate 200) to have been dropped")
	}
	if drop.session.State != SessionDisconnected {
		t.Fatalf("expected dropped session to be closed")
	}
	if !handler.timeoutCalled {
		t.Fatalf("expected OnTimeout to be invoked on the dropped session's handler")
	}
	if len(unknownIDs) != 1 || unknownIDs[0] != 999 {
		t.Fatalf("expected unknown id 999 to be reported, got %v", unknownIDs)
	}
	_ = timedOut
}

// TestSessionRegistryPollSessionsDrivesTicker verifies that PollSessions
// calls through to a bound handler's SessionTicker hook exactly once per
// owned session, summing the reported work, and skips handlers that don't
// implement the hook.
func TestSessionRegistryPollSessionsDrivesTicker(t *testing.T) {
	r := NewSessionRegistry()

	ticking := newTestSubscriber(1, 100)
	ticker := &tickingSessionHandler{work: 3}
	ticking.bindHandler(ticker)
	r.Add(ticking)

	plain := newTestSubscriber(2, 200)
	plain.bindHandler(&recordingSessionHandler{})
	r.Add(plain)

	total := r.PollSessions(5000)
	if total != 3 {
		t.Fatalf("expected PollSessions to report 3 units of work, got %d", total)
	}
	if ticker.calls != 1 {
		t.Fatalf("expected the ticker hook to be called exactly once, got %d", ticker.calls)
	}
	if ticker.lastNowMs != 5000 {
		t.Fatalf("expected the ticker hook to observe nowMs 5000, got %d", ticker.lastNowMs)
	}
}

type tickingSessionHandler struct {
	recordingSessionHandler
	work      int
	calls     int
	lastNowMs int64
}

func (h *tickingSessionHandler) OnPoll(session *Session, nowMs int64) int {
	h.calls++
	h.lastNowMs = nowMs
	return h.work
}

var _ SessionTicker = (*tickingSessionHandler)(nil)

type recordingSessionHandler struct {
	timeoutCalled bool
}

func (h *recordingSessionHandler) OnMessage(buf []byte, session *Session, seqIndex int32, msgType string, tsNanos int64, position int64) Disposition {
	return Continue
}
func (h *recordingSessionHandler) OnDisconnect(session *Session, reason string) Disposition {
	return Continue
}
func (h *recordingSessionHandler) OnSlowStatus(session *Session, isSlow bool) {}
func (h *recordingSessionHandler) OnTimeout(session *Session)                 { h.timeoutCalled = true }

var _ SessionHandler = (*recordingSessionHandler)(nil)
