package replay

import (
	"path/filepath"
	"testing"
)

// newRealSessionQuery builds a tiny, genuinely mmap'd SessionQuery backed by
// a throwaway index file, since Cache is typed concretely over *SessionQuery
// and its Close() unmaps real memory -- a zero-value stand-in would panic.
func newRealSessionQuery(t *testing.T, sessionID int64) *SessionQuery {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.idx")
	w, err := NewIndexWriter(path, 4)
	if err != nil {
		t.Fatalf("NewIndexWriter: %v", err)
	}
	w.Append(ReplayIndexRecord{Position: 1000, SequenceNumber: 1, RecordingID: 1, Length: 64})
	if err := w.Close(); err != nil {
		t.Fatalf("Close writer: %v", err)
	}
	q, err := OpenSessionQuery(path, sessionID, noopIdle{})
	if err != nil {
		t.Fatalf("OpenSessionQuery: %v", err)
	}
	return q
}

func TestCacheOpensAndReusesEntries(t *testing.T) {
	opens := 0
	c := NewCache(2, func(sessionID int64) (*SessionQuery, error) {
		opens++
		return newRealSessionQuery(t, sessionID), nil
	})
	defer c.Close()

	q1, err := c.Get(1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	q1Again, err := c.Get(1)
	if err != nil {
		t.Fatalf("Get(1) again: %v", err)
	}
	if q1 != q1Again {
		t.Fatalf("expected the second Get(1) to reuse the cached entry")
	}
	if opens != 1 {
		t.Fatalf("expected exactly 1 open for session 1, got %d", opens)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2, func(sessionID int64) (*SessionQuery, error) {
		return newRealSessionQuery(t, sessionID), nil
	})
	defer c.Close()

	mustGet := func(id int64) *SessionQuery {
		q, err := c.Get(id)
		if err != nil {
			t.Fatalf("Get(%d): %v", id, err)
		}
		return q
	}

	mustGet(1)
	mustGet(2)
	// Touch 1 so it is more recently used than 2.
	mustGet(1)
	// Adding a third distinct entry must evict 2 (the least recently used),
	// not 1.
	mustGet(3)

	if _, ok := c.entries[2]; ok {
		t.Fatalf("expected session 2 to have been evicted")
	}
	if _, ok := c.entries[1]; !ok {
		t.Fatalf("expected session 1 to remain cached (it was touched most recently)")
	}
	if _, ok := c.entries[3]; !ok {
		t.Fatalf("expected session 3 to be cached")
	}
	if len(c.entries) != 2 {
		t.Fatalf("expected cache to hold exactly 2 entries, got %d", len(c.entries))
	}
}

func TestCacheClose(t *testing.T) {
	c := NewCache(4, func(sessionID int64) (*SessionQuery, error) {
		return newRealSessionQuery(t, sessionID), nil
	})
	c.Get(1)
	c.Get(2)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(c.entries) != 0 {
		t.Fatalf("expected Close to clear all entries")
	}
}
