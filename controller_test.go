package library

import (
	"testing"

	"github.com/Kost1s/artio/transport"
)

// tickingClock returns a nowMs function that advances by stepMs on every
// call, starting at startMs -- enough for the AWAIT_HEARTBEAT loop's
// deadline check to eventually trip without a real sleep.
func tickingClock(startMs, stepMs int64) func() int64 {
	t := startMs
	return func() int64 {
		t += stepMs
		return t
	}
}

func TestConnectControllerSucceedsOnFirstChannel(t *testing.T) {
	factory := newFakeFactory()
	cfg := ConnectConfig{Channels: []string{"engine-a:9999"}, ReplyTimeoutMs: 1000, ReconnectAttempts: 3}
	ctrl := NewConnectController(cfg, 1, factory, BusySpinIdleStrategy{}, NoOpLogger{})

	sub := &fakeSubscription{}
	factory.subs["engine-a:9999"] = sub
	sub.push(encodeApplicationHeartbeat(transport.ApplicationHeartbeat{LibraryID: 1}))

	result, err := ctrl.Connect(tickingClock(0, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Channel != "engine-a:9999" {
		t.Fatalf("expected to connect on engine-a:9999, got %s", result.Channel)
	}

	pub := factory.pubs["engine-a:9999"]
	if len(pub.sent) != 1 {
		t.Fatalf("expected exactly 1 LibraryConnect to have been sent, got %d", len(pub.sent))
	}
	if pub.sent[0][0] != tagLibraryConnect {
		t.Fatalf("expected the sent fragment to be a LibraryConnect, got tag %d", pub.sent[0][0])
	}
}

// TestNotLeaderRedirectSwitchesChannel exercises Redirect (a non-empty
// libraryChannel hint from a NotLeader message) and confirms the next
// Connect call dials the hinted channel first, ahead of the configured list.
func TestNotLeaderRedirectSwitchesChannel(t *testing.T) {
	factory := newFakeFactory()
	cfg := ConnectConfig{Channels: []string{"engine-a:9999", "engine-b:9999"}, ReplyTimeoutMs: 1000, ReconnectAttempts: 5}
	ctrl := NewConnectController(cfg, 1, factory, BusySpinIdleStrategy{}, NoOpLogger{})

	ctrl.Redirect("engine-leader:9999")

	sub := &fakeSubscription{}
	factory.subs["engine-leader:9999"] = sub
	sub.push(encodeApplicationHeartbeat(transport.ApplicationHeartbeat{LibraryID: 1}))

	result, err := ctrl.Connect(tickingClock(0, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Channel != "engine-leader:9999" {
		t.Fatalf("expected the redirected channel to be dialed first, got %s", result.Channel)
	}
}

func TestConnectControllerRotatesOnTimeoutThenSucceeds(t *testing.T) {
	factory := newFakeFactory()
	cfg := ConnectConfig{Channels: []string{"engine-a:9999", "engine-b:9999"}, ReplyTimeoutMs: 200, ReconnectAttempts: 5}
	ctrl := NewConnectController(cfg, 1, factory, BusySpinIdleStrategy{}, NoOpLogger{})

	// engine-a never produces a heartbeat; engine-b does.
	subB := &fakeSubscription{}
	factory.subs["engine-b:9999"] = subB
	subB.push(encodeApplicationHeartbeat(transport.ApplicationHeartbeat{LibraryID: 1}))

	result, err := ctrl.Connect(tickingClock(0, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Channel != "engine-b:9999" {
		t.Fatalf("expected rotation to land on engine-b:9999, got %s", result.Channel)
	}

	subA := factory.subs["engine-a:9999"]
	if subA == nil || !subA.closed {
		t.Fatalf("expected engine-a's subscription to have been closed after the timeout")
	}
}

func TestConnectControllerFailsAfterExhaustingReconnectAttempts(t *testing.T) {
	factory := newFakeFactory()
	cfg := ConnectConfig{Channels: []string{"engine-a:9999", "engine-b:9999"}, ReplyTimeoutMs: 200, ReconnectAttempts: 2}
	ctrl := NewConnectController(cfg, 1, factory, BusySpinIdleStrategy{}, NoOpLogger{})

	_, err := ctrl.Connect(tickingClock(0, 50))
	if err == nil {
		t.Fatalf("expected Connect to fail once reconnect attempts are exhausted")
	}
	libErr, ok := err.(*LibraryError)
	if !ok {
		t.Fatalf("expected a *LibraryError, got %T", err)
	}
	if libErr.Type != UnableToConnect {
		t.Fatalf("expected UnableToConnect, got %s", libErr.Type)
	}
}

