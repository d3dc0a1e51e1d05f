package udptransport

import "testing"

func TestFactoryDialAndListen(t *testing.T) {
	f := NewFactory()

	sub, err := f.NewSubscription("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewSubscription: %v", err)
	}
	defer sub.Close()

	addr := sub.(*Subscription).conn.LocalAddr().String()
	pub, err := f.NewPublication(addr)
	if err != nil {
		t.Fatalf("NewPublication: %v", err)
	}
	defer pub.Close()

	if _, err := pub.Offer([]byte("ping")); err != nil {
		t.Fatalf("Offer: %v", err)
	}
}
