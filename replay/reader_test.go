package replay

import (
	"path/filepath"
	"testing"
)

type noopIdle struct{}

func (noopIdle) Idle()  {}
func (noopIdle) Reset() {}

func mustWriter(t *testing.T, capacitySlots int64) (*IndexWriter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.idx")
	w, err := NewIndexWriter(path, capacitySlots)
	if err != nil {
		t.Fatalf("NewIndexWriter: %v", err)
	}
	return w, path
}

// TestIndexWrapRestartsAtEndChange writes more records than the ring holds,
// so earlier slots are overwritten, then confirms a query restarts its scan
// at the writer's current position (getIteratorPosition returning
// beginChange once the ring has wrapped) and returns exactly the records
// still live, in ascending sequence order -- never a stale, overwritten one.
func TestIndexWrapRestartsAtEndChange(t *testing.T) {
	w, path := mustWriter(t, 3)

	for seq := int32(1); seq <= 5; seq++ {
		w.Append(ReplayIndexRecord{
			Position:       int64(seq) * 1000,
			SequenceIndex:  0,
			SequenceNumber: seq,
			RecordingID:    1,
			Length:         64,
		})
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close writer: %v", err)
	}

	q, err := OpenSessionQuery(path, 42, noopIdle{})
	if err != nil {
		t.Fatalf("OpenSessionQuery: %v", err)
	}
	defer q.Close()

	ranges := q.Query(1, 0, MostRecentMessage, 0)
	if len(ranges) != 1 {
		t.Fatalf("expected 1 recording range, got %d", len(ranges))
	}
	got := ranges[0]
	if got.RecordingID != 1 || got.SessionID != 42 {
		t.Fatalf("unexpected recording/session id: %+v", got)
	}
	if got.Count != 3 {
		t.Fatalf("expected 3 live records (seq 3,4,5 survive the wrap), got %d", got.Count)
	}
	if len(got.Ranges) != 3 {
		t.Fatalf("expected 3 byte ranges, got %d", len(got.Ranges))
	}
	// Position 3000 (seq 3) must be the first surviving record: seq 1 and 2
	// were overwritten by the wrap.
	if got.Ranges[0].Offset != 3000-FrameAlignment {
		t.Fatalf("expected the oldest surviving record to be seq 3 (position 3000), got offset %d", got.Ranges[0].Offset)
	}
	if got.Ranges[2].Offset != 5000-FrameAlignment {
		t.Fatalf("expected the newest record to be seq 5 (position 5000), got offset %d", got.Ranges[2].Offset)
	}
}

func TestIndexQueryExcludesRecordsBeforeBeginSequenceNumber(t *testing.T) {
	w, path := mustWriter(t, 8)
	for seq := int32(1); seq <= 4; seq++ {
		w.Append(ReplayIndexRecord{Position: int64(seq) * 1000, SequenceNumber: seq, RecordingID: 7, Length: 64})
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close writer: %v", err)
	}

	q, err := OpenSessionQuery(path, 1, noopIdle{})
	if err != nil {
		t.Fatalf("OpenSessionQuery: %v", err)
	}
	defer q.Close()

	ranges := q.Query(3, 0, MostRecentMessage, 0)
	if len(ranges) != 1 || ranges[0].Count != 2 {
		t.Fatalf("expected only seq 3 and 4 to match, got %+v", ranges)
	}
}

// TestSkipToStartArithmeticJump exercises the arithmetic skip used while
// scanning past records that precede the query's begin sequence number:
// within one sequence index, skipToStart must jump directly to the
// estimated position rather than stepping one record at a time.
func TestSkipToStartArithmeticJump(t *testing.T) {
	got := skipToStart(10, 5, 160)
	want := jumpPosition(10, 5, 160)
	if got != want {
		t.Fatalf("expected skipToStart to delegate to jumpPosition when behind, got %d want %d", got, want)
	}
	if want != 160+(10-5)*RecordLength {
		t.Fatalf("unexpected jump arithmetic: got %d", want)
	}

	// Already at or past the begin bound: skipToStart must advance by
	// exactly one record rather than jumping (different sequence index,
	// where the arithmetic estimate would not be valid).
	if got := skipToStart(5, 5, 160); got != 160+RecordLength {
		t.Fatalf("expected a single-record step when sequenceNumber >= beginSequenceNumber, got %d", got)
	}
	if got := skipToStart(5, 9, 160); got != 160+RecordLength {
		t.Fatalf("expected a single-record step when already past the begin bound, got %d", got)
	}
}

func TestGetIteratorPositionStartsAtZeroBeforeFirstLap(t *testing.T) {
	w, path := mustWriter(t, 8)
	w.Append(ReplayIndexRecord{Position: 1000, SequenceNumber: 1, RecordingID: 1, Length: 64})
	if err := w.Close(); err != nil {
		t.Fatalf("Close writer: %v", err)
	}

	q, err := OpenSessionQuery(path, 1, noopIdle{})
	if err != nil {
		t.Fatalf("OpenSessionQuery: %v", err)
	}
	defer q.Close()

	if pos := q.getIteratorPosition(); pos != 0 {
		t.Fatalf("expected iterator to start at 0 before the ring has wrapped, got %d", pos)
	}
}
