package replay

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Archive is the collaborator that turns RecordingRanges into actual FIX
// message bytes. A real deployment replays from the engine's durable
// archive (out of scope per this module, which owns only the index); this
// in-memory stand-in lets this module's own tests exercise the full
// Query -> fetch path against real bytes. Grounded on comet's
// zstd.NewReader(nil)/DecodeAll decompression path (reader.go), since
// archived FIX message bytes are stored compressed exactly as comet's
// segment entries are.
type Archive struct {
	mu           sync.RWMutex
	recordings   map[int64][]byte
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

// NewArchive constructs an empty in-memory archive.
func NewArchive() (*Archive, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Archive{
		recordings:   make(map[int64][]byte),
		compressor:   enc,
		decompressor: dec,
	}, nil
}

// Append compresses and appends data to recordingID, returning the byte
// offset and length the compressed chunk occupies within the recording's
// backing slice. Callers building index fixtures must derive
// ReplayIndexRecord.Position/Length from these so that RecordingRange.add's
// FrameAlignment adjustment (see reader.go) lines back up with Fetch's
// slicing: Position = offset+FrameAlignment, Length = length-FrameAlignment.
func (a *Archive) Append(recordingID int64, data []byte) (offset, length int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	compressed := a.compressor.EncodeAll(data, nil)
	existing := a.recordings[recordingID]
	offset = int64(len(existing))
	a.recordings[recordingID] = append(existing, compressed...)
	return offset, int64(len(compressed))
}

// Fetch reads and decompresses the bytes covered by a RecordingRange,
// concatenating every ByteRange's segment in order.
func (a *Archive) Fetch(r RecordingRange) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, ok := a.recordings[r.RecordingID]
	if !ok {
		return nil, fmt.Errorf("replay: unknown recording %d", r.RecordingID)
	}

	var out []byte
	for _, br := range r.Ranges {
		start := br.Offset
		end := start + br.Length
		if start < 0 || end > int64(len(data)) {
			return nil, fmt.Errorf("replay: range [%d,%d) out of bounds for recording %d (len %d)", start, end, r.RecordingID, len(data))
		}
		decoded, err := a.decompressor.DecodeAll(data[start:end], nil)
		if err != nil {
			return nil, fmt.Errorf("replay: decompress recording %d range [%d,%d): %w", r.RecordingID, start, end, err)
		}
		out = append(out, decoded...)
	}
	return out, nil
}

// Close releases the archive's zstd resources.
func (a *Archive) Close() {
	a.compressor.Close()
	a.decompressor.Close()
}
