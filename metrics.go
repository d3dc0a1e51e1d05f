package library

import "sync/atomic"

// MetricsProvider is the interface the poller and its collaborators report
// through. Adapted from comet's MetricsProvider (metrics_interface.go)
// with the write/compression/consumer counters it tracked replaced by the
// session/reconnect/reply counters this domain actually produces; the
// atomic-counter-plus-snapshot shape is unchanged.
type MetricsProvider interface {
	IncrementSessionsAcquired(count uint64)
	IncrementSessionsReleased(count uint64)
	SetSessionsActive(count uint64)

	IncrementReconnectAttempts(count uint64)
	IncrementReconnectFailures(count uint64)
	SetConnected(connected bool)

	IncrementRepliesCompleted(count uint64)
	IncrementRepliesErrored(count uint64)
	IncrementRepliesTimedOut(count uint64)

	IncrementFragmentsHandled(count uint64)
	IncrementFragmentsAborted(count uint64)

	IncrementErrors(count uint64)

	GetStats() MetricsSnapshot
}

// MetricsSnapshot is a point-in-time view of a MetricsProvider's counters.
type MetricsSnapshot struct {
	SessionsAcquired  uint64
	SessionsReleased  uint64
	SessionsActive    uint64
	ReconnectAttempts uint64
	ReconnectFailures uint64
	Connected         bool
	RepliesCompleted  uint64
	RepliesErrored    uint64
	RepliesTimedOut   uint64
	FragmentsHandled  uint64
	FragmentsAborted  uint64
	ErrorCount        uint64
}

// atomicMetrics implements MetricsProvider using raw atomics, matching the
// teacher's atomicMetrics: one process owns this library instance, so plain
// atomic adds/stores are sufficient without CAS loops (no concurrent writer).
type atomicMetrics struct {
	sessionsAcquired  atomic.Uint64
	sessionsReleased  atomic.Uint64
	sessionsActive    atomic.Uint64
	reconnectAttempts atomic.Uint64
	reconnectFailures atomic.Uint64
	connected         atomic.Bool
	repliesCompleted  atomic.Uint64
	repliesErrored    atomic.Uint64
	repliesTimedOut   atomic.Uint64
	fragmentsHandled  atomic.Uint64
	fragmentsAborted  atomic.Uint64
	errorCount        atomic.Uint64
}

var _ MetricsProvider = (*atomicMetrics)(nil)

func newAtomicMetrics() *atomicMetrics { return &atomicMetrics{} }

func (m *atomicMetrics) IncrementSessionsAcquired(count uint64) { m.sessionsAcquired.Add(count) }
func (m *atomicMetrics) IncrementSessionsReleased(count uint64) { m.sessionsReleased.Add(count) }
func (m *atomicMetrics) SetSessionsActive(count uint64)         { m.sessionsActive.Store(count) }

func (m *atomicMetrics) IncrementReconnectAttempts(count uint64) { m.reconnectAttempts.Add(count) }
func (m *atomicMetrics) IncrementReconnectFailures(count uint64) { m.reconnectFailures.Add(count) }
func (m *atomicMetrics) SetConnected(connected bool)             { m.connected.Store(connected) }

func (m *atomicMetrics) IncrementRepliesCompleted(count uint64) { m.repliesCompleted.Add(count) }
func (m *atomicMetrics) IncrementRepliesErrored(count uint64)   { m.repliesErrored.Add(count) }
func (m *atomicMetrics) IncrementRepliesTimedOut(count uint64)  { m.repliesTimedOut.Add(count) }

func (m *atomicMetrics) IncrementFragmentsHandled(count uint64) { m.fragmentsHandled.Add(count) }
func (m *atomicMetrics) IncrementFragmentsAborted(count uint64) { m.fragmentsAborted.Add(count) }

func (m *atomicMetrics) IncrementErrors(count uint64) { m.errorCount.Add(count) }

func (m *atomicMetrics) GetStats() MetricsSnapshot {
	return MetricsSnapshot{
		SessionsAcquired:  m.sessionsAcquired.Load(),
		SessionsReleased:  m.sessionsReleased.Load(),
		SessionsActive:    m.sessionsActive.Load(),
		ReconnectAttempts: m.reconnectAttempts.Load(),
		ReconnectFailures: m.reconnectFailures.Load(),
		Connected:         m.connected.Load(),
		RepliesCompleted:  m.repliesCompleted.Load(),
		RepliesErrored:    m.repliesErrored.Load(),
		RepliesTimedOut:   m.repliesTimedOut.Load(),
		FragmentsHandled:  m.fragmentsHandled.Load(),
		FragmentsAborted:  m.fragmentsAborted.Load(),
		ErrorCount:        m.errorCount.Load(),
	}
}
