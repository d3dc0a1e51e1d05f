// Package shmtransport implements the transport.Publication/Subscription
// contract over a memory-mapped ring buffer shared between one engine and
// one library instance, for deployments that colocate them on the same
// host. Grounded structurally on comet's MmapWriter (mmap_writer.go,
// atomic write-offset allocation, syscall.Mmap/Munmap, grow/remap-on-demand)
// and Reader (reader.go, atomic.Value-held mapping, lock-free remap).
package shmtransport

import (
	"encoding/binary"
	"os"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/Kost1s/artio/transport"
)

var byteOrder = binary.LittleEndian

// frameAlignment pads every fragment's on-wire length to a 32-byte boundary,
// matching Aeron's logbuffer FRAME_ALIGNMENT convention this whole module
// follows (see replay.FrameAlignment).
const frameAlignment = 32

const headerSize = 64

// ringHeader is overlaid onto the mapped file's first 64 bytes via
// unsafe.Pointer, the same way comet's MmapCoordinationState overlays
// onto its coordination file.
type ringHeader struct {
	writeOffset atomic.Int64
	readOffset  atomic.Int64
	capacity    int64
	_reserved   [headerSize - 24]byte
}

func align(n int) int64 {
	return int64((n + frameAlignment - 1) &^ (frameAlignment - 1))
}

// mappedRing is the shared mmap state both the Publication and Subscription
// sides of one channel hold a reference to.
type mappedRing struct {
	file   *os.File
	data   []byte
	header *ringHeader
	ring   []byte // the capacity-sized record region following the header
}

func openRing(path string, capacity int64, create bool) (*mappedRing, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}

	size := headerSize + capacity
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	isNew := stat.Size() == 0
	if isNew {
		if err := file.Truncate(size); err != nil {
			file.Close()
			return nil, err
		}
	}

	data, err := syscall.Mmap(int(file.Fd()), 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, err
	}

	header := (*ringHeader)(unsafe.Pointer(&data[0]))
	if isNew {
		header.capacity = capacity
	}

	return &mappedRing{file: file, data: data, header: header, ring: data[headerSize:]}, nil
}

func (r *mappedRing) close() error {
	if err := syscall.Munmap(r.data); err != nil {
		return err
	}
	return r.file.Close()
}

// writeAt copies b into the ring starting at byte position pos (mod
// capacity), split across the wrap point if necessary.
func (r *mappedRing) writeAt(pos int64, b []byte) {
	capacity := r.header.capacity
	offset := pos % capacity
	n := copy(r.ring[offset:], b)
	if n < len(b) {
		copy(r.ring[0:], b[n:])
	}
}

// readAt copies length bytes starting at byte position pos (mod capacity)
// into a freshly allocated slice, split across the wrap point if necessary.
func (r *mappedRing) readAt(pos, length int64) []byte {
	capacity := r.header.capacity
	offset := pos % capacity
	out := make([]byte, length)
	n := copy(out, r.ring[offset:])
	if int64(n) < length {
		copy(out[n:], r.ring[0:])
	}
	return out
}

// Publication offers fragments onto a shared-memory ring. Exactly one
// Publication should be active per channel at a time; it is the library's
// or engine's outbound side of the control-plane connection.
type Publication struct {
	ring   *mappedRing
	closed bool
}

var _ transport.Publication = (*Publication)(nil)

// NewPublication opens (creating if necessary) the ring backing channel's
// shared-memory file and returns its Publication side.
func NewPublication(path string, capacity int64) (*Publication, error) {
	ring, err := openRing(path, capacity, true)
	if err != nil {
		return nil, err
	}
	return &Publication{ring: ring}, nil
}

// Offer writes a length-prefixed, frame-aligned copy of fragment into the
// ring. Returns the new write offset on success, or -1 if there isn't
// enough free space for the reader to have caught up to yet -- the
// transport.Publication contract's back-pressure signal.
func (p *Publication) Offer(fragment []byte) (int64, error) {
	if p.closed {
		return 0, transport.ErrClosed
	}

	required := align(4 + len(fragment))
	writeOffset := p.ring.header.writeOffset.Load()
	readOffset := p.ring.header.readOffset.Load()

	if writeOffset-readOffset+required > p.ring.header.capacity {
		return -1, nil
	}

	var lengthPrefix [4]byte
	byteOrder.PutUint32(lengthPrefix[:], uint32(len(fragment)))
	p.ring.writeAt(writeOffset, lengthPrefix[:])
	p.ring.writeAt(writeOffset+4, fragment)

	newOffset := writeOffset + required
	p.ring.header.writeOffset.Store(newOffset)
	return newOffset, nil
}

// Close unmaps the ring. The Subscription side, if held by another
// component, remains independently valid until it is also closed.
func (p *Publication) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.ring.close()
}

// Subscription drains fragments from a shared-memory ring.
type Subscription struct {
	ring   *mappedRing
	closed bool
}

var _ transport.Subscription = (*Subscription)(nil)

// NewSubscription opens (creating if necessary) the ring backing channel's
// shared-memory file and returns its Subscription side.
func NewSubscription(path string, capacity int64) (*Subscription, error) {
	ring, err := openRing(path, capacity, true)
	if err != nil {
		return nil, err
	}
	return &Subscription{ring: ring}, nil
}

// Poll drains up to fragmentLimit fragments in publication order. A
// fragment on which handler returns transport.Abort is not consumed: the
// read offset does not advance past it, and it is redelivered verbatim on
// the next Poll call, matching the controlled-poll contract every caller in
// this module relies on.
func (s *Subscription) Poll(handler transport.FragmentHandler, fragmentLimit int) (int, error) {
	if s.closed {
		return 0, transport.ErrClosed
	}

	consumed := 0
	for consumed < fragmentLimit {
		readOffset := s.ring.header.readOffset.Load()
		writeOffset := s.ring.header.writeOffset.Load()
		if readOffset >= writeOffset {
			break
		}

		lengthPrefix := s.ring.readAt(readOffset, 4)
		length := int64(byteOrder.Uint32(lengthPrefix))
		fragment := s.ring.readAt(readOffset+4, length)

		if handler(fragment) == transport.Abort {
			break
		}

		s.ring.header.readOffset.Store(readOffset + align(4+int(length)))
		consumed++
	}
	return consumed, nil
}

// Close unmaps the ring.
func (s *Subscription) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.ring.close()
}

