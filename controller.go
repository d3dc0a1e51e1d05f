package library

import "github.com/Kost1s/artio/transport"

type connectState int

const (
	stateInit connectState = iota
	stateSendConnect
	stateAwaitHeartbeat
	stateConnected
	stateRetry
	stateFail
)

// ConnectResult is the transport pair a successful Connect hands back to the
// poller, bound to the channel that accepted the handshake.
type ConnectResult struct {
	Channel      string
	Publication  transport.Publication
	Subscription transport.Subscription
}

// ConnectController drives the connect/failover handshake (C6). Where the
// original recursed through sendLibraryConnectOrRetry ->
// attemptNextEngine -> sendLibraryConnectOrRetry on every timeout, this is
// rewritten as an explicit iterative state machine: INIT -> SEND_CONNECT ->
// AWAIT_HEARTBEAT -> CONNECTED, with
// AWAIT_HEARTBEAT's timeout edge looping back to INIT on the next channel
// (RETRY) or terminating at FAIL once attempts are exhausted.
type ConnectController struct {
	cfg       ConnectConfig
	libraryID int32
	factory   TransportFactory
	idle      IdleStrategy
	logger    Logger

	channels   []string
	channelIdx int

	connectCorrelationID int64
}

// NewConnectController constructs a controller over cfg's channel list. The
// channel slice is copied so Redirect can mutate it without aliasing the
// caller's config.
func NewConnectController(cfg ConnectConfig, libraryID int32, factory TransportFactory, idle IdleStrategy, logger Logger) *ConnectController {
	channels := make([]string, len(cfg.Channels))
	copy(channels, cfg.Channels)
	return &ConnectController{cfg: cfg, libraryID: libraryID, factory: factory, idle: idle, logger: logger, channels: channels}
}

// Redirect inserts a hinted leader channel at the front of the rotation, per
// the original's onNotLeader handling of a non-empty libraryChannel hint.
func (c *ConnectController) Redirect(channel string) {
	if channel == "" {
		return
	}
	c.channels = append([]string{channel}, c.channels...)
	c.channelIdx = 0
}

// RotateToNextEngine advances the round-robin pointer, per onNotLeader's
// "empty hint" branch: just move on to the next configured engine.
func (c *ConnectController) RotateToNextEngine() {
	c.channelIdx = (c.channelIdx + 1) % len(c.channels)
}

// CurrentCorrelationID reports the correlation id of the most recent
// LibraryConnect sent, the threshold the dispatcher filters NotLeader
// messages against: a NotLeader whose replyToId predates this value answers a connect
// attempt that has since been superseded and must not redirect the current
// one.
func (c *ConnectController) CurrentCorrelationID() int64 {
	return c.connectCorrelationID
}

// Connect runs the handshake state machine to completion: it either returns
// a bound ConnectResult or a LibraryError{UnableToConnect} once the configured
// reconnect attempt budget is exhausted. nowMs supplies the clock so tests
// can drive it deterministically.
func (c *ConnectController) Connect(nowMs func() int64) (*ConnectResult, error) {
	var (
		state      = stateInit
		attempts   = 0
		channel    string
		pub        transport.Publication
		sub        transport.Subscription
		proxy      *SessionProxy
		deadlineMs int64
	)

	for {
		switch state {
		case stateInit:
			channel = c.channels[c.channelIdx]
			var err error
			pub, err = c.factory.NewPublication(channel)
			if err != nil {
				return nil, err
			}
			sub, err = c.factory.NewSubscription(channel)
			if err != nil {
				return nil, err
			}
			proxy = NewSessionProxy(pub, c.idle, c.cfg.ReplyTimeoutMs, c.logger)
			state = stateSendConnect

		case stateSendConnect:
			c.connectCorrelationID++
			_, ok, err := proxy.SendLibraryConnect(nowMs, transport.LibraryConnect{
				LibraryID:     c.libraryID,
				CorrelationID: c.connectCorrelationID,
			})
			if err != nil {
				return nil, err
			}
			if !ok {
				state = stateRetry
				continue
			}
			deadlineMs = nowMs() + c.cfg.ReplyTimeoutMs
			c.idle.Reset()
			state = stateAwaitHeartbeat

		case stateAwaitHeartbeat:
			connected := false
			_, err := sub.Poll(func(fragment []byte) transport.Disposition {
				msg, decodeErr := decodeFragment(fragment)
				if decodeErr != nil {
					return transport.Continue
				}
				if hb, ok := msg.(transport.ApplicationHeartbeat); ok && hb.LibraryID == c.libraryID {
					connected = true
				}
				return transport.Continue
			}, 10)
			if err != nil {
				return nil, err
			}
			if connected {
				state = stateConnected
				continue
			}
			if nowMs() >= deadlineMs {
				attempts++
				if attempts > c.cfg.ReconnectAttempts {
					state = stateFail
					continue
				}
				state = stateRetry
				continue
			}
			c.idle.Idle()

		case stateRetry:
			if pub != nil {
				_ = pub.Close()
			}
			if sub != nil {
				_ = sub.Close()
			}
			c.RotateToNextEngine()
			state = stateInit

		case stateConnected:
			c.idle.Reset()
			return &ConnectResult{Channel: channel, Publication: pub, Subscription: sub}, nil

		case stateFail:
			if pub != nil {
				_ = pub.Close()
			}
			if sub != nil {
				_ = sub.Close()
			}
			return nil, NewLibraryError(UnableToConnect, c.libraryID, "exhausted reconnect attempts across all configured engines")
		}
	}
}
