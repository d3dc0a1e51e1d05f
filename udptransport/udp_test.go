package udptransport

import (
	"testing"
	"time"

	"github.com/Kost1s/artio/transport"
)

func TestPublicationOfferSubscriptionPollLoopback(t *testing.T) {
	sub, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer sub.Close()

	pub, err := Dial(sub.conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer pub.Close()

	msg := []byte("8=FIX.4.4|35=0|")
	if _, err := pub.Offer(msg); err != nil {
		t.Fatalf("Offer: %v", err)
	}

	var got []byte
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err := sub.Poll(func(fragment []byte) transport.Disposition {
			got = append([]byte{}, fragment...)
			return transport.Continue
		}, 10)
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
		if got != nil {
			break
		}
	}
	if string(got) != string(msg) {
		t.Fatalf("expected to receive %q, got %q", msg, got)
	}
}

func TestUDPOfferRejectsOversizedFragment(t *testing.T) {
	sub, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer sub.Close()
	pub, err := Dial(sub.conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer pub.Close()

	oversized := make([]byte, maxDatagram+1)
	if _, err := pub.Offer(oversized); err == nil {
		t.Fatalf("expected an error offering a fragment larger than maxDatagram")
	}
}

func TestUDPOfferAfterCloseReturnsErrClosed(t *testing.T) {
	pub, err := Dial("127.0.0.1:19999")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := pub.Offer([]byte("x")); err != transport.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
