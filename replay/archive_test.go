package replay

import (
	"bytes"
	"testing"
)

func TestArchiveAppendFetchRoundTrip(t *testing.T) {
	a, err := NewArchive()
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	defer a.Close()

	msg1 := []byte("8=FIX.4.4|35=D|11=order-1|")
	msg2 := []byte("8=FIX.4.4|35=8|11=order-1|39=0|")

	offset1, length1 := a.Append(1, msg1)
	offset2, length2 := a.Append(1, msg2)

	if offset2 != length1 {
		t.Fatalf("expected the second append to start where the first ended: offset2=%d length1=%d", offset2, length1)
	}

	r := RecordingRange{
		RecordingID: 1,
		SessionID:   9,
		Ranges: []ByteRange{
			{Offset: offset1, Length: length1},
			{Offset: offset2, Length: length2},
		},
		Count: 2,
	}

	got, err := a.Fetch(r)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := append(append([]byte{}, msg1...), msg2...)
	if !bytes.Equal(got, want) {
		t.Fatalf("fetched bytes mismatch:\n got  %q\n want %q", got, want)
	}
}

func TestArchiveFetchUnknownRecording(t *testing.T) {
	a, err := NewArchive()
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	defer a.Close()

	_, err = a.Fetch(RecordingRange{RecordingID: 999})
	if err == nil {
		t.Fatalf("expected an error fetching an unknown recording")
	}
}

func TestArchiveFetchOutOfBoundsRange(t *testing.T) {
	a, err := NewArchive()
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	defer a.Close()

	a.Append(1, []byte("hello"))
	_, err = a.Fetch(RecordingRange{RecordingID: 1, Ranges: []ByteRange{{Offset: 0, Length: 1000}}})
	if err == nil {
		t.Fatalf("expected an out-of-bounds range to error")
	}
}
