package library

import (
	"github.com/Kost1s/artio/transport"
)

// LibraryPoller is the library connector's single entry point: it owns the
// control-plane connection, the session registry, the reply tracker, and
// the liveness detector, and is driven exclusively by repeated calls to
// Poll from one owning goroutine -- it has no internal threads, mirroring
// the original's single-threaded LibraryPoller.
type LibraryPoller struct {
	cfg       LibraryConfig
	libraryID int32
	nowMs     func() int64

	factory    TransportFactory
	controller *ConnectController
	proxy      *SessionProxy
	sub        transport.Subscription
	dispatcher *InboundDispatcher

	registry *SessionRegistry
	replies  *ReplyTracker
	liveness *LivenessDetector
	metrics  *atomicMetrics
	logger   Logger

	connected bool
	closed    bool
}

// NewLibraryPoller validates cfg, fills in defaults, and constructs a poller
// bound to factory. It does not connect; call Connect (or the first Poll,
// which connects implicitly) to perform the handshake.
func NewLibraryPoller(cfg LibraryConfig, factory TransportFactory) (*LibraryPoller, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	logger := createLogger(cfg.Log)
	metrics := newAtomicMetrics()
	registry := NewSessionRegistry()
	replies := NewReplyTracker()

	controller := NewConnectController(cfg.Connect, cfg.LibraryID, factory, cfg.IdleStrategy, logger)

	p := &LibraryPoller{
		cfg:        cfg,
		libraryID:  cfg.LibraryID,
		nowMs:      nowMillis,
		factory:    factory,
		controller: controller,
		registry:   registry,
		replies:    replies,
		metrics:    metrics,
		logger:     logger,
	}
	p.liveness = NewLivenessDetector(p.nowMs(), cfg.Liveness.TimeoutMs, p.onLivenessLost)
	p.dispatcher = newInboundDispatcher(cfg.LibraryID, p.nowMs, registry, replies, p.liveness, controller, metrics, logger, &p.cfg)
	return p, nil
}

func (p *LibraryPoller) onLivenessLost() {
	p.connected = false
	p.metrics.SetConnected(false)
	p.cfg.ConnectHandler.OnDisconnect()
	p.logger.Warn("liveness lost, control connection considered down", "libraryId", p.libraryID)
}

// Connect performs the connect/failover handshake (C6) and, on success,
// binds the resulting transport pair for use by Poll.
func (p *LibraryPoller) Connect() error {
	if p.closed {
		return ErrLibraryClosed
	}
	p.metrics.IncrementReconnectAttempts(1)
	result, err := p.controller.Connect(p.nowMs)
	if err != nil {
		p.metrics.IncrementReconnectFailures(1)
		return err
	}
	p.proxy = NewSessionProxy(result.Publication, p.cfg.IdleStrategy, p.cfg.Reply.PublishRetryWindowMs, p.logger)
	p.sub = result.Subscription
	p.connected = true
	p.liveness.OnHeartbeat(p.nowMs())
	p.metrics.SetConnected(true)
	p.cfg.ConnectHandler.OnConnect()
	return nil
}

// Poll drains up to fragmentLimit inbound fragments, drives each registered
// session's per-tick hook, then runs the liveness check and the reply-
// timeout sweep, in that order -- matching the original's
// pollWithoutReconnect (drain, pollSessions, liveness.poll, checkReplies):
// draining first ensures a heartbeat sitting in this tick's inbound buffer
// is applied before the liveness check runs, so liveness never spuriously
// fires a disconnect on a tick where a heartbeat was actually pending. It
// reconnects automatically if the control connection is not currently
// established, matching the original's poll()/pollWithoutReconnect() split:
// reconnection is attempted here, never inside the hot fragment-draining
// path.
func (p *LibraryPoller) Poll(fragmentLimit int) (int, error) {
	if p.closed {
		return 0, ErrLibraryClosed
	}
	if !p.connected {
		if err := p.Connect(); err != nil {
			return 0, err
		}
	}

	n, err := p.sub.Poll(p.dispatcher.Dispatch, fragmentLimit)
	if err != nil {
		p.connected = false
		p.metrics.SetConnected(false)
		return n, err
	}

	now := p.nowMs()
	work := n
	work += p.registry.PollSessions(now)
	if p.liveness.Poll(now) {
		work++
	}
	if timedOut := p.replies.SweepTimeouts(now); timedOut > 0 {
		p.metrics.IncrementRepliesTimedOut(uint64(timedOut))
		work += timedOut
	}
	return work, nil
}

// Close releases the poller's transport resources. Every operation after
// Close returns ErrLibraryClosed; Close itself is idempotent.
func (p *LibraryPoller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.proxy != nil {
		_ = p.proxy.Close()
	}
	if p.sub != nil {
		_ = p.sub.Close()
	}
	return nil
}

// Sessions returns the sessions currently owned by this library instance.
func (p *LibraryPoller) Sessions() []*Session {
	return p.registry.Sessions()
}

// Metrics returns a snapshot of this poller's counters.
func (p *LibraryPoller) Metrics() MetricsSnapshot {
	return p.metrics.GetStats()
}

// Initiate requests the engine dial a new FIX counterparty on this
// library's behalf, returning a handle that resolves once the engine
// reports the resulting connection (ManageConnection). The session is
// handed to SessionAcquireHandler later, on its Logon(NEW).
func (p *LibraryPoller) Initiate(req transport.InitiateConnection) (*InitiateSessionReply, error) {
	if p.closed {
		return nil, ErrLibraryClosed
	}
	if !p.connected {
		return nil, NewLibraryError(UnableToConnect, p.libraryID, "library is not connected to an engine")
	}
	req.LibraryID = p.libraryID
	reply := newInitiateSessionReply(0, p.nowMs(), p.cfg.Reply.ArrivalTimeoutMs)
	id := p.replies.Register(reply)
	reply.correlationID = id
	req.CorrelationID = id

	_, ok, err := p.proxy.SendInitiateConnection(p.nowMs, req)
	if err != nil {
		p.replies.Take(id)
		return nil, err
	}
	if !ok {
		p.replies.Take(id)
		return nil, NewLibraryError(TimedOut, p.libraryID, "initiate connection was back-pressured past its retry window")
	}
	return reply, nil
}

// ReleaseToGateway relinquishes ownership of session back to the engine.
func (p *LibraryPoller) ReleaseToGateway(session *Session) (*ReleaseSessionReply, error) {
	if p.closed {
		return nil, ErrLibraryClosed
	}
	reply := newReleaseSessionReply(0, p.nowMs(), p.cfg.Reply.ArrivalTimeoutMs)
	id := p.replies.Register(reply)
	reply.correlationID = id

	req := transport.ReleaseSession{
		LibraryID:           p.libraryID,
		ConnectionID:        session.ConnectionID,
		CorrelationID:       id,
		State:               int32(session.State),
		HeartbeatIntervalMs: session.HeartbeatIntervalMs,
		LastSentSeq:         session.LastSentSeq,
		LastReceivedSeq:     session.LastReceivedSeq,
	}
	_, ok, err := p.proxy.SendReleaseSession(p.nowMs, req)
	if err != nil {
		p.replies.Take(id)
		return nil, err
	}
	if !ok {
		p.replies.Take(id)
		return nil, NewLibraryError(TimedOut, p.libraryID, "release session was back-pressured past its retry window")
	}
	return reply, nil
}

// RequestSession requests ownership of a previously released session.
func (p *LibraryPoller) RequestSession(sessionID int64, lastReceivedSeq int32) (*RequestSessionReply, error) {
	if p.closed {
		return nil, ErrLibraryClosed
	}
	reply := newRequestSessionReply(0, p.nowMs(), p.cfg.Reply.ArrivalTimeoutMs)
	id := p.replies.Register(reply)
	reply.correlationID = id

	req := transport.RequestSession{
		LibraryID:       p.libraryID,
		SessionID:       sessionID,
		CorrelationID:   id,
		LastReceivedSeq: lastReceivedSeq,
	}
	_, ok, err := p.proxy.SendRequestSession(p.nowMs, req)
	if err != nil {
		p.replies.Take(id)
		return nil, err
	}
	if !ok {
		p.replies.Take(id)
		return nil, NewLibraryError(TimedOut, p.libraryID, "request session was back-pressured past its retry window")
	}
	return reply, nil
}
