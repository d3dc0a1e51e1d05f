package replay

import (
	"os"
	"syscall"
)

// IndexWriter is the single-writer side of a session's replay index ring.
// In a full deployment this is owned by the engine's archiving logger
// process, never by a library instance; it is exported here because the
// library's own test suite needs to build realistic index fixtures without
// a real engine attached, and because a future engine-side component in
// this module can adopt it directly rather than reimplementing the ring
// protocol a second time.
//
// Grounded structurally on comet's MmapWriter (mmap_writer.go):
// open-or-create the backing file, truncate to the required size, mmap it,
// and overlay a coordination struct on byte 0 via unsafe.Pointer.
type IndexWriter struct {
	file     *os.File
	data     []byte
	header   *ringHeader
	capacity int64 // ring capacity in bytes, a multiple of RecordLength
	position int64 // next byte position to write at, monotonically increasing
}

// NewIndexWriter creates or truncates the index file at path to hold
// capacitySlots records plus the coordination header, and maps it.
func NewIndexWriter(path string, capacitySlots int64) (*IndexWriter, error) {
	size := headerSize + capacitySlots*RecordLength

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := file.Truncate(size); err != nil {
		file.Close()
		return nil, err
	}

	data, err := syscall.Mmap(int(file.Fd()), 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &IndexWriter{
		file:     file,
		data:     data,
		header:   ringHeaderOf(data),
		capacity: capacitySlots * RecordLength,
	}, nil
}

// Append writes one record to the ring, advancing the write cursor by
// RecordLength. Implements the begin-ahead/end-catches-up protocol the
// reader's torn-read check depends on (see record.go and reader.go):
// beginChange jumps ahead to announce the write, then endChange catches up
// to commit it, restoring the begin==end invariant observed while idle.
func (w *IndexWriter) Append(rec ReplayIndexRecord) {
	next := w.position + RecordLength
	w.header.beginChange.Store(next)
	*recordAt(w.data, w.capacity, w.position) = rec
	w.header.endChange.Store(next)
	w.position = next
}

// Close unmaps and closes the backing file.
func (w *IndexWriter) Close() error {
	if err := syscall.Munmap(w.data); err != nil {
		return err
	}
	return w.file.Close()
}
