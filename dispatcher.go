package library

import "github.com/Kost1s/artio/transport"

// erroringReply is satisfied by every ReplyHandle-embedding type; it lets
// the dispatcher resolve an error against whichever concrete reply type
// Take returned without a type switch over all three.
type erroringReply interface {
	resolveErrored(message string)
}

// InboundDispatcher is the fragment handler bound to the control-plane
// subscription. Each onX method corresponds one-to-one to a handler in the
// original's LibraryPoller (onManageConnection, onLogon, onMessage,
// onDisconnect, onError, onApplicationHeartbeat, onReleaseSessionReply,
// onRequestSessionReply, onCatchup, onNewSentPosition, onNotLeader,
// onControlNotification); Dispatch is the decode-and-switch entry point a
// transport.Subscription.Poll call drives.
type InboundDispatcher struct {
	libraryID int32
	nowMs     func() int64

	registry   *SessionRegistry
	replies    *ReplyTracker
	liveness   *LivenessDetector
	controller *ConnectController
	metrics    MetricsProvider
	logger     Logger

	sessionExistsHandler  SessionExistsHandler
	sessionAcquireHandler SessionAcquireHandler
	errorHandler          ErrorHandler
	sentPositionHandler   SentPositionHandler
}

func newInboundDispatcher(
	libraryID int32,
	nowMs func() int64,
	registry *SessionRegistry,
	replies *ReplyTracker,
	liveness *LivenessDetector,
	controller *ConnectController,
	metrics MetricsProvider,
	logger Logger,
	cfg *LibraryConfig,
) *InboundDispatcher {
	return &InboundDispatcher{
		libraryID:             libraryID,
		nowMs:                 nowMs,
		registry:              registry,
		replies:               replies,
		liveness:              liveness,
		controller:            controller,
		metrics:               metrics,
		logger:                logger,
		sessionExistsHandler:  cfg.SessionExistsHandler,
		sessionAcquireHandler: cfg.SessionAcquireHandler,
		errorHandler:          cfg.ErrorHandler,
		sentPositionHandler:   cfg.SentPositionHandler,
	}
}

// Dispatch decodes a single inbound fragment and routes it to its handler.
// It is the transport.FragmentHandler bound to the control subscription.
func (d *InboundDispatcher) Dispatch(fragment []byte) transport.Disposition {
	msg, err := decodeFragment(fragment)
	if err != nil {
		d.logger.Warn("dropping undecodable fragment", "err", err)
		return transport.Continue
	}

	switch m := msg.(type) {
	case transport.ManageConnection:
		return d.onManageConnection(m)
	case transport.Logon:
		return d.onLogon(m)
	case transport.FixMessage:
		return d.onFixMessage(m)
	case transport.Disconnect:
		return d.onDisconnect(m)
	case transport.ErrorMessage:
		return d.onError(m)
	case transport.ApplicationHeartbeat:
		return d.onApplicationHeartbeat(m)
	case transport.ReleaseSessionReply:
		return d.onReleaseSessionReply(m)
	case transport.RequestSessionReply:
		return d.onRequestSessionReply(m)
	case transport.Catchup:
		return d.onCatchup(m)
	case transport.NewSentPosition:
		return d.onNewSentPosition(m)
	case transport.NotLeader:
		return d.onNotLeader(m)
	case transport.ControlNotification:
		return d.onControlNotification(m)
	default:
		return transport.Continue
	}
}

// onManageConnection creates and registers the session and, if a pending
// InitiateSessionReply matches ReplyToID, resolves it -- it never acquires
// the session. Acquisition (binding a SessionHandler) happens only once the
// counterparty actually logs on; see onLogon.
func (d *InboundDispatcher) onManageConnection(m transport.ManageConnection) transport.Disposition {
	if m.LibraryID != d.libraryID {
		return transport.Continue
	}

	session := &Session{
		SurrogateID:         m.SessionID,
		ConnectionID:        m.ConnectionID,
		State:               SessionConnected,
		LastSentSeq:         m.LastSentSeq,
		LastReceivedSeq:     m.LastReceivedSeq,
		HeartbeatIntervalMs: int64(m.HeartbeatIntervalS) * 1000,
		LibraryConnected:    true,
	}
	sub := newSessionSubscriber(session)
	d.registry.Add(sub)

	if pending, ok := d.replies.Take(m.ReplyToID); ok {
		reply, isInitiate := pending.(*InitiateSessionReply)
		if !isInitiate {
			d.errorHandler.OnError(InvalidConfiguration, d.libraryID, "ManageConnection resolved a reply that was not an initiate")
			return transport.Continue
		}
		reply.resolveWithSession(session)
		d.metrics.IncrementRepliesCompleted(1)
	}

	d.metrics.SetSessionsActive(uint64(d.registry.Len()))
	return transport.Continue
}

// onLogon acquires the session on a NEW logon addressed to this library,
// binding the handler returned by SessionAcquireHandler, and otherwise
// reports a SessionExists notification for engine broadcasts and
// LIBRARY_NOTIFICATION logons addressed to this library.
func (d *InboundDispatcher) onLogon(m transport.Logon) transport.Disposition {
	thisLibrary := m.LibraryID == d.libraryID

	if thisLibrary && m.Status == transport.LogonNew {
		sub, ok := d.registry.Get(m.ConnectionID)
		if !ok {
			d.errorHandler.OnError(UnknownSession, d.libraryID, "logon for a connection this library does not own")
			return transport.Continue
		}

		handler := d.sessionAcquireHandler.OnSessionAcquired(sub.session)
		sub.bindHandler(handler)

		sub.session.State = SessionActive
		sub.session.LastSentSeq = m.LastSentSeq
		sub.session.LastReceivedSeq = m.LastReceivedSeq
		sub.session.Identity = CompleteSessionId{
			LocalCompID:  m.TargetCompID,
			RemoteCompID: m.SenderCompID,
			SurrogateID:  m.SessionID,
		}

		d.metrics.IncrementSessionsAcquired(1)
		return transport.Continue
	}

	if m.LibraryID == transport.EngineLibraryID || (thisLibrary && m.Status == transport.LogonLibraryNotification) {
		d.sessionExistsHandler.OnSessionExists(m.SessionID, m.SenderCompID, m.SenderSubID, m.SenderLocationID, m.TargetCompID, m.Username, m.Password)
	}

	return transport.Continue
}

func (d *InboundDispatcher) onFixMessage(m transport.FixMessage) transport.Disposition {
	if m.LibraryID != d.libraryID {
		return transport.Continue
	}
	sub, ok := d.registry.Get(m.ConnectionID)
	if !ok {
		return transport.Continue
	}
	disp := sub.onMessage(m.Body, m.SeqIndex, m.MessageType, m.TimestampNs, m.Position)
	if disp == transport.Abort {
		d.metrics.IncrementFragmentsAborted(1)
	} else {
		d.metrics.IncrementFragmentsHandled(1)
	}
	return disp
}

func (d *InboundDispatcher) onDisconnect(m transport.Disconnect) transport.Disposition {
	if m.LibraryID != d.libraryID {
		return transport.Continue
	}
	sub, ok := d.registry.Get(m.ConnectionID)
	if !ok {
		return transport.Continue
	}

	d.registry.Remove(m.ConnectionID)
	disp := sub.onDisconnect(m.Reason)
	if disp == transport.Abort {
		d.registry.Reinsert(sub)
		return transport.Abort
	}

	d.metrics.IncrementSessionsReleased(1)
	d.metrics.SetSessionsActive(uint64(d.registry.Len()))
	return transport.Continue
}

// onError resolves a pending reply keyed by ReplyToID, if this error is
// addressed to this library, then always reports to errorHandler regardless
// of which library it was addressed to -- the original's gatewayErrorHandler
// call sits outside the libraryId guard.
func (d *InboundDispatcher) onError(m transport.ErrorMessage) transport.Disposition {
	resolved := false
	if m.LibraryID == d.libraryID {
		if pending, ok := d.replies.Take(m.ReplyToID); ok {
			if erroring, canError := pending.(erroringReply); canError {
				erroring.resolveErrored(m.Message)
			}
			d.metrics.IncrementRepliesErrored(1)
			resolved = true
		}
	}
	if !resolved {
		d.metrics.IncrementErrors(1)
	}

	return d.errorHandler.OnError(GatewayError(m.ErrorType), m.LibraryID, m.Message)
}

func (d *InboundDispatcher) onApplicationHeartbeat(m transport.ApplicationHeartbeat) transport.Disposition {
	if m.LibraryID != d.libraryID {
		return transport.Continue
	}
	d.liveness.OnHeartbeat(d.nowMs())
	return transport.Continue
}

func (d *InboundDispatcher) onReleaseSessionReply(m transport.ReleaseSessionReply) transport.Disposition {
	pending, ok := d.replies.Take(m.ReplyToID)
	if !ok {
		return transport.Continue
	}
	reply, isRelease := pending.(*ReleaseSessionReply)
	if !isRelease {
		d.errorHandler.OnError(InvalidConfiguration, d.libraryID, "ReleaseSessionReply resolved a reply that was not a release")
		return transport.Continue
	}
	if m.Status == 0 {
		reply.resolveCompleted()
		d.metrics.IncrementRepliesCompleted(1)
	} else {
		reply.resolveErrored("engine rejected the release")
		d.metrics.IncrementRepliesErrored(1)
	}
	return transport.Continue
}

func (d *InboundDispatcher) onRequestSessionReply(m transport.RequestSessionReply) transport.Disposition {
	pending, ok := d.replies.Take(m.ReplyToID)
	if !ok {
		return transport.Continue
	}
	reply, isRequest := pending.(*RequestSessionReply)
	if !isRequest {
		d.errorHandler.OnError(InvalidConfiguration, d.libraryID, "RequestSessionReply resolved a reply that was not a request")
		return transport.Continue
	}
	if m.Status == 0 {
		reply.resolveCompleted()
		d.metrics.IncrementRepliesCompleted(1)
	} else {
		reply.resolveErrored("engine rejected the request")
		d.metrics.IncrementRepliesErrored(1)
	}
	return transport.Continue
}

func (d *InboundDispatcher) onCatchup(m transport.Catchup) transport.Disposition {
	if m.LibraryID != d.libraryID {
		return transport.Continue
	}
	sub, ok := d.registry.Get(m.ConnectionID)
	if !ok {
		return transport.Continue
	}
	sub.startCatchup(m.MessageCount)
	return transport.Continue
}

func (d *InboundDispatcher) onNewSentPosition(m transport.NewSentPosition) transport.Disposition {
	if m.LibraryID != d.libraryID {
		return transport.Continue
	}
	return d.sentPositionHandler.OnSendCompleted(m.Position)
}

// onNotLeader resolves any outstanding reply addressed by m.ReplyToID as
// errored regardless of staleness, since a stale NotLeader can still be the
// only answer a caller's in-flight Initiate/Release/Request ever gets. The
// redirect/rotate itself is gated on both this library owning the message
// and m.ReplyToID not being stale: a replyToId older than the controller's
// current connect attempt answers an engine this library has already moved
// on from, and must not redirect the connect attempt in progress.
func (d *InboundDispatcher) onNotLeader(m transport.NotLeader) transport.Disposition {
	if pending, ok := d.replies.Take(m.ReplyToID); ok {
		if erroring, canError := pending.(erroringReply); canError {
			erroring.resolveErrored("engine reports it is not the leader")
		}
		d.metrics.IncrementRepliesErrored(1)
	}

	if m.LibraryID != d.libraryID || m.ReplyToID < d.controller.CurrentCorrelationID() {
		return transport.Continue
	}

	if m.LibraryChannel != "" {
		d.controller.Redirect(m.LibraryChannel)
	} else {
		d.controller.RotateToNextEngine()
	}
	return transport.Continue
}

func (d *InboundDispatcher) onControlNotification(m transport.ControlNotification) transport.Disposition {
	if m.LibraryID != d.libraryID {
		return transport.Continue
	}
	d.registry.Reconcile(m.SessionIDs, func(sessionID int64) {
		d.logger.Warn("control notification referenced a session not owned by this library", "sessionId", sessionID, "libraryId", d.libraryID)
	})
	d.metrics.SetSessionsActive(uint64(d.registry.Len()))
	return transport.Continue
}
