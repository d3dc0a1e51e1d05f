package replay

import (
	"os"
	"syscall"
)

// IdleStrategy paces the retry loop a reader enters when it observes a
// record that the writer is concurrently overwriting. Declared locally
// rather than imported from the root library package so this package has
// no dependency on it (neither package imports the other).
type IdleStrategy interface {
	Idle()
	Reset()
}

// ByteRange is one contiguous archive interval a RecordingRange replays.
type ByteRange struct {
	Offset int64
	Length int64
}

// RecordingRange is a contiguous run of index records that all belong to
// the same underlying recording, folded together so the eventual archive
// replay issues one request per recording rather than one per record.
// Grounded on the original's RecordingRange/addRange.
type RecordingRange struct {
	RecordingID int64
	SessionID   int64
	Ranges      []ByteRange
	// Count is the number of distinct FIX messages covered, which can be
	// less than len(Ranges): a single FIX message can be indexed across
	// multiple fragmented ranges sharing one sequence number.
	Count int
}

func (r *RecordingRange) add(beginPosition, length int64, sequenceNumber, lastSequenceNumber int) {
	r.Ranges = append(r.Ranges, ByteRange{
		Offset: beginPosition - FrameAlignment,
		Length: length + FrameAlignment,
	})
	if lastSequenceNumber != sequenceNumber {
		r.Count++
	}
}

// SessionQuery is a read-only handle onto one session's replay index ring,
// grounded on ReplayQuery.SessionQuery (original_source). It holds no
// lock: the underlying ring is single-writer, multi-reader safe by
// construction (see record.go).
type SessionQuery struct {
	file      *os.File
	data      []byte
	header    *ringHeader
	capacity  int64
	sessionID int64
	idle      IdleStrategy
}

// OpenSessionQuery maps the index file at path read-only for querying.
func OpenSessionQuery(path string, sessionID int64, idle IdleStrategy) (*SessionQuery, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	size := int(stat.Size())
	data, err := syscall.Mmap(int(file.Fd()), 0, size, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &SessionQuery{
		file:      file,
		data:      data,
		header:    ringHeaderOf(data),
		capacity:  recordCapacity(size),
		sessionID: sessionID,
		idle:      idle,
	}, nil
}

// Close unmaps the index file.
func (q *SessionQuery) Close() error {
	if err := syscall.Munmap(q.data); err != nil {
		return err
	}
	return q.file.Close()
}

// getIteratorPosition picks the scan start position: the ring's oldest
// valid position, unless the ring hasn't completed its first lap yet, in
// which case the scan starts from the very beginning.
func (q *SessionQuery) getIteratorPosition() int64 {
	iteratorPosition := q.header.beginChange.Load()
	if iteratorPosition < q.capacity {
		iteratorPosition = 0
	}
	return iteratorPosition
}

// jumpPosition estimates how far ahead to skip when the current record's
// sequence number is already behind the query's begin sequence number,
// matching the original's arithmetic jump (valid only within one sequence
// index, where sequence numbers increase one-for-one with ring position).
func jumpPosition(beginSequenceNumber, sequenceNumber int32, iteratorPosition int64) int64 {
	sequenceNumberJump := int64(beginSequenceNumber - sequenceNumber)
	return iteratorPosition + sequenceNumberJump*RecordLength
}

// skipToStart advances past records that precede the query's begin bound.
func skipToStart(beginSequenceNumber, sequenceNumber int32, iteratorPosition int64) int64 {
	if sequenceNumber < beginSequenceNumber {
		return jumpPosition(beginSequenceNumber, sequenceNumber, iteratorPosition)
	}
	// Different sequence index; no good jump estimate, scan forward one record.
	return iteratorPosition + RecordLength
}

// Query scans the session's index for every record within
// [beginSequenceNumber, endSequenceNumber] across the given sequence index
// bounds (inclusive), folding the result into per-recording ranges ready
// for an archive replay. endSequenceNumber of MostRecentMessage means
// "everything indexed so far". Grounded line-for-line on
// ReplayQuery.SessionQuery.query's lock-free read loop.
func (q *SessionQuery) Query(beginSequenceNumber, beginSequenceIndex, endSequenceNumber, endSequenceIndex int32) []RecordingRange {
	upToMostRecent := endSequenceNumber == MostRecentMessage

	var ranges []RecordingRange
	var current *RecordingRange

	iteratorPosition := q.getIteratorPosition()
	stopIteratingPosition := iteratorPosition + q.capacity

	lastSequenceNumber := int32(-1)

	for iteratorPosition != stopIteratingPosition {
		changePosition := q.header.endChange.Load()

		// Lapped by the writer: our whole remaining scan window has already
		// been overwritten. Recover by jumping forward to the writer's
		// last known-committed position and rescanning one more lap from there.
		if changePosition > iteratorPosition && iteratorPosition+q.capacity <= q.header.beginChange.Load() {
			iteratorPosition = changePosition
			stopIteratingPosition = iteratorPosition + q.capacity
		}

		rec := *recordAt(q.data, q.capacity, iteratorPosition)

		// LoadLoad fence: ensure the record field reads above aren't
		// reordered past the beginChange recheck below. sync/atomic's Load
		// already implies acquire semantics in Go's memory model, but the
		// recheck itself is the actual torn-read guard, matching the
		// original's explicit UNSAFE.loadFence() before it.
		if changePosition == q.header.beginChange.Load() {
			q.idle.Reset()

			afterEnd := !upToMostRecent && (rec.SequenceIndex > endSequenceIndex ||
				(rec.SequenceIndex == endSequenceIndex && rec.SequenceNumber > endSequenceNumber))
			if rec.Position == 0 || afterEnd {
				break
			}

			withinQueryRange := rec.SequenceIndex > beginSequenceIndex ||
				(rec.SequenceIndex == beginSequenceIndex && rec.SequenceNumber >= beginSequenceNumber)
			if withinQueryRange {
				current = q.addRange(&ranges, current, lastSequenceNumber, rec)
				lastSequenceNumber = rec.SequenceNumber
				iteratorPosition += RecordLength
			} else if rec.SequenceIndex == beginSequenceIndex {
				iteratorPosition = skipToStart(beginSequenceNumber, rec.SequenceNumber, iteratorPosition)
			} else {
				// Earlier sequence index: the arithmetic jump is not valid
				// across indexes, so scan forward one record.
				iteratorPosition += RecordLength
			}
		} else {
			q.idle.Idle()
		}
	}

	if current != nil {
		ranges = append(ranges, *current)
	}
	return ranges
}

func (q *SessionQuery) addRange(ranges *[]RecordingRange, current *RecordingRange, lastSequenceNumber int32, rec ReplayIndexRecord) *RecordingRange {
	if current == nil {
		current = &RecordingRange{RecordingID: rec.RecordingID, SessionID: q.sessionID}
	} else if current.RecordingID != rec.RecordingID {
		*ranges = append(*ranges, *current)
		current = &RecordingRange{RecordingID: rec.RecordingID, SessionID: q.sessionID}
	}
	current.add(rec.Position, int64(rec.Length), int(rec.SequenceNumber), int(lastSequenceNumber))
	return current
}
