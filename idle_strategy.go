package library

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// IdleStrategy paces a bounded busy-poll loop between attempts, the only
// place this library ever "blocks". Idle is called
// when a poll observed no work; Reset is called once work resumes.
type IdleStrategy interface {
	Idle()
	Reset()
}

// BusySpinIdleStrategy never sleeps; it is appropriate for the hot
// pollWithoutReconnect path, which must never introduce a suspension point.
type BusySpinIdleStrategy struct{}

func (BusySpinIdleStrategy) Idle()  {}
func (BusySpinIdleStrategy) Reset() {}

// BackoffIdleStrategy paces the polling inside the connect controller's
// AWAIT_HEARTBEAT wait (LibraryConnect is sent once per attempt and not
// re-sent during the wait) and the back-pressured publish retry in
// C8, grounded on the exponential-backoff reconnect loops in the pack's
// exchange-connector repo (coachpo-meltica-gateway's okx/ws_manager.go,
// binance/websocket_manager.go), which reach for the same library for the
// same purpose: bounded, growing sleeps between unsuccessful attempts.
type BackoffIdleStrategy struct {
	cfg *backoff.ExponentialBackOff
}

// NewBackoffIdleStrategy builds a strategy whose sleep grows exponentially
// from initial up to max, resetting to initial each time Reset is called.
func NewBackoffIdleStrategy(initial, max time.Duration) *BackoffIdleStrategy {
	cfg := backoff.NewExponentialBackOff()
	cfg.InitialInterval = initial
	cfg.MaxInterval = max
	return &BackoffIdleStrategy{cfg: cfg}
}

func (b *BackoffIdleStrategy) Idle() {
	sleep := b.cfg.NextBackOff()
	if sleep == backoff.Stop {
		sleep = b.cfg.MaxInterval
	}
	time.Sleep(sleep)
}

func (b *BackoffIdleStrategy) Reset() {
	b.cfg.Reset()
}
