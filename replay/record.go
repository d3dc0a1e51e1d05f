// Package replay implements the lock-free replay index reader: a
// single-writer, multiple-reader memory-mapped ring of fixed-width records
// that map (session id, sequence number) pairs onto archive positions.
package replay

import (
	"sync/atomic"
	"unsafe"
)

// FrameAlignment matches Aeron's logbuffer FRAME_ALIGNMENT, the padding unit
// every record's begin position is adjusted by when folded into a
// RecordingRange (see addRange).
const FrameAlignment = 32

// RecordLength is the fixed, padded width of one ReplayIndexRecord slot in
// the ring, grounded on comet's hand-rolled binary index codec
// (index_binary.go): fixed-width fields, no reflection, no gob.
const RecordLength = 32

// MostRecentMessage is the sentinel end-sequence-number meaning "replay up
// to whatever is most recently indexed", matching Replayer.MOST_RECENT_MESSAGE.
const MostRecentMessage = -1

// headerSize is the ring's fixed coordination prefix: two change counters,
// cache-line padded the way comet pads its own mmap coordination
// structs (MmapCoordinationState) so the two counters never share a cache
// line with the record ring that follows.
const headerSize = 64

// ringHeader is overlaid directly onto the mmap'd index file's first 64
// bytes via unsafe.Pointer, exactly as comet overlays
// MmapCoordinationState onto its coordination file (mmap_writer.go). The
// dual counters implement the single-writer torn-read protocol: a reader
// snapshots endChange, reads a record, then rechecks beginChange equals the
// snapshot -- if not, the writer lapped it mid-read and it must retry.
type ringHeader struct {
	beginChange atomic.Int64
	endChange   atomic.Int64
	_reserved   [headerSize - 16]byte
}

// ReplayIndexRecord is one slot in the ring: the archive position a FIX
// message begins at, its (sequenceIndex, sequenceNumber) composite sequence,
// the recording it lives in, and its encoded length. Fields and order are
// grounded on ReplayIndexRecordDecoder's accessors as used by
// ReplayQuery.SessionQuery.query (original_source).
type ReplayIndexRecord struct {
	Position       int64
	SequenceIndex  int32
	SequenceNumber int32
	RecordingID    int64
	Length         int32
	_pad           int32
}

// recordCapacity returns the byte capacity of the record ring (excluding
// the header) for a buffer of the given total mapped length, matching the
// original's recordCapacity(buffer.capacity()) helper. Positions and this
// capacity share the same byte-position space, both multiples of
// RecordLength, so offset(position, capacity) below is a plain modulus.
func recordCapacity(totalLen int) int64 {
	slots := int64((totalLen - headerSize) / RecordLength)
	return slots * RecordLength
}

func ringHeaderOf(data []byte) *ringHeader {
	return (*ringHeader)(unsafe.Pointer(&data[0]))
}

// offset maps a monotonically increasing ring position onto a byte offset
// into the record region, matching the original's offset(iteratorPosition,
// capacity).
func offset(position, capacity int64) int64 {
	return position % capacity
}

// recordAt returns the record slot at the given ring position.
func recordAt(data []byte, capacity, position int64) *ReplayIndexRecord {
	off := headerSize + offset(position, capacity)
	return (*ReplayIndexRecord)(unsafe.Pointer(&data[off]))
}
