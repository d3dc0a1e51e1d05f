package library

import "testing"

func TestReplyTrackerRegisterTakePeek(t *testing.T) {
	tr := NewReplyTracker()
	reply := newInitiateSessionReply(0, 0, 5000)

	id := tr.Register(reply)
	if id == 0 {
		t.Fatalf("expected a non-zero correlation id")
	}
	if tr.Len() != 1 {
		t.Fatalf("expected 1 pending reply, got %d", tr.Len())
	}

	peeked, ok := tr.Peek(id)
	if !ok || peeked != reply {
		t.Fatalf("expected Peek to find the registered reply without removing it")
	}
	if tr.Len() != 1 {
		t.Fatalf("expected Peek to leave the reply pending")
	}

	taken, ok := tr.Take(id)
	if !ok || taken != reply {
		t.Fatalf("expected Take to return the registered reply")
	}
	if tr.Len() != 0 {
		t.Fatalf("expected Take to remove the reply")
	}
	if _, ok := tr.Take(id); ok {
		t.Fatalf("expected a second Take of the same id to fail")
	}
}

func TestReplyTrackerNeverReusesAPendingCorrelationID(t *testing.T) {
	tr := NewReplyTracker()
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := tr.Register(newReleaseSessionReply(0, 0, 5000))
		if seen[id] {
			t.Fatalf("correlation id %d reused while still pending", id)
		}
		seen[id] = true
	}
}

func TestReplyTrackerSweepTimeouts(t *testing.T) {
	tr := NewReplyTracker()

	expired := newReleaseSessionReply(0, 1000, 500) // deadline 1500
	stillPending := newRequestSessionReply(0, 1000, 5000) // deadline 6000
	idExpired := tr.Register(expired)
	idPending := tr.Register(stillPending)

	count := tr.SweepTimeouts(2000)
	if count != 1 {
		t.Fatalf("expected exactly 1 reply to time out, got %d", count)
	}
	if expired.State() != ReplyTimedOut {
		t.Fatalf("expected expired reply to be TIMED_OUT, got %s", stateName(expired.State()))
	}
	if stillPending.State() != ReplyPending {
		t.Fatalf("expected unexpired reply to remain PENDING, got %s", stateName(stillPending.State()))
	}
	if _, ok := tr.Take(idExpired); ok {
		t.Fatalf("expected the timed-out reply to have been removed from the tracker")
	}
	if _, ok := tr.Take(idPending); !ok {
		t.Fatalf("expected the still-pending reply to remain registered")
	}
}

func stateName(s ReplyState) string {
	switch s {
	case ReplyPending:
		return "PENDING"
	case ReplyCompleted:
		return "COMPLETED"
	case ReplyErrored:
		return "ERRORED"
	case ReplyTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}
