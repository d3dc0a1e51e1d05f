package library

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConnectConfig controls the connect/failover controller (C6).
type ConnectConfig struct {
	// Channels (named after the original's libraryAeronChannels) is the
	// ordered list of engine control-plane channels to round-robin across.
	Channels []string `json:"channels"`
	// ReplyTimeoutMs is the deadline for a single connect attempt to observe
	// a heartbeat before rotating to the next engine.
	ReplyTimeoutMs int64 `json:"reply_timeout_ms"`
	// ReconnectAttempts bounds how many times the controller rotates engines
	// before failing fatally. Zero means "fail on the first timeout".
	ReconnectAttempts int `json:"reconnect_attempts"`
}

// Clustered reports whether more than one engine channel is configured.
// The connect controller opens a fresh publication and subscription on
// every Connect whether or not the deployment is clustered; single-engine
// deployments do not keep their streams across reconnects.
func (c ConnectConfig) Clustered() bool {
	return len(c.Channels) > 1
}

// DefaultConnectConfig returns sensible single-engine defaults.
func DefaultConnectConfig() ConnectConfig {
	return ConnectConfig{
		Channels:          []string{"localhost:9999"},
		ReplyTimeoutMs:    5_000,
		ReconnectAttempts: 3,
	}
}

// LivenessConfig controls the heartbeat-based liveness detector (C4).
type LivenessConfig struct {
	TimeoutMs int64 `json:"timeout_ms"`
}

// DefaultLivenessConfig returns sensible defaults.
func DefaultLivenessConfig() LivenessConfig {
	return LivenessConfig{TimeoutMs: 5_000}
}

// ReplyConfig controls the reply tracker (C3) and operation-reply handles (C8).
type ReplyConfig struct {
	// ArrivalTimeoutMs bounds how long a ReplyHandle waits for a resolving
	// fragment before timing out.
	ArrivalTimeoutMs int64 `json:"arrival_timeout_ms"`
	// PublishRetryWindowMs bounds how long a back-pressured Offer is retried
	// before the operation surfaces as TIMED_OUT.
	PublishRetryWindowMs int64 `json:"publish_retry_window_ms"`
}

// DefaultReplyConfig returns sensible defaults.
func DefaultReplyConfig() ReplyConfig {
	return ReplyConfig{ArrivalTimeoutMs: 5_000, PublishRetryWindowMs: 1_000}
}

// LibraryConnectHandler is notified when the library's control-plane
// connection comes up or goes down. Supplemented from the original's
// libraryConnectHandler(), omitted from the distilled callback catalogue.
type LibraryConnectHandler interface {
	OnConnect()
	OnDisconnect()
}

// noopConnectHandler is used when the caller does not supply one.
type noopConnectHandler struct{}

func (noopConnectHandler) OnConnect()    {}
func (noopConnectHandler) OnDisconnect() {}

// SessionExistsHandler is notified of SessionExists events (LIBRARY_NOTIFICATION
// logons, or any logon addressed to the engine's broadcast library id) that
// carry no ownership change.
type SessionExistsHandler interface {
	OnSessionExists(sessionID int64, senderCompID, senderSubID, senderLocationID, targetCompID, username, password string)
}

type noopSessionExistsHandler struct{}

func (noopSessionExistsHandler) OnSessionExists(int64, string, string, string, string, string, string) {}

// SessionAcquireHandler is invoked when a NEW logon hands this library
// ownership of a session, returning the SessionHandler to bind to it.
type SessionAcquireHandler interface {
	OnSessionAcquired(session *Session) SessionHandler
}

// ErrorHandler receives errors that either have no matching reply handle or
// fall outside the taxonomy's reply-routed cases.
type ErrorHandler interface {
	OnError(errType GatewayError, libraryID int32, msg string) Disposition
}

type defaultErrorHandler struct{ logger Logger }

func (h defaultErrorHandler) OnError(errType GatewayError, libraryID int32, msg string) Disposition {
	h.logger.Error("gateway error", "type", errType.String(), "libraryId", libraryID, "msg", msg)
	return Continue
}

// SentPositionHandler receives NewSentPosition notifications.
type SentPositionHandler interface {
	OnSendCompleted(position int64) Disposition
}

type noopSentPositionHandler struct{}

func (noopSentPositionHandler) OnSendCompleted(int64) Disposition { return Continue }

// LibraryConfig is the complete configuration for a library connector
// instance, assembled the way comet assembles CometConfig: small
// nested config structs, one Default*Config constructor per concern,
// composed by DefaultLibraryConfig, filled in by validateConfig.
type LibraryConfig struct {
	// LibraryID uniquely identifies this library instance to the engine(s)
	// it connects to. Multiple libraries share one engine.
	LibraryID int32 `json:"library_id"`
	// InstanceID is a collision-resistant identifier for this process's
	// library instance, included in String() so operators can distinguish
	// instances sharing a LibraryID across restarts. Connect attempts do not
	// log it.
	InstanceID uuid.UUID `json:"instance_id"`

	DefaultHeartbeatIntervalS int32 `json:"default_heartbeat_interval_s"`

	Connect  ConnectConfig  `json:"connect"`
	Liveness LivenessConfig `json:"liveness"`
	Reply    ReplyConfig    `json:"reply"`
	Log      LogConfig      `json:"log"`

	ConnectHandler        LibraryConnectHandler
	SessionExistsHandler  SessionExistsHandler
	SessionAcquireHandler SessionAcquireHandler
	ErrorHandler          ErrorHandler
	SentPositionHandler   SentPositionHandler

	// IdleStrategy paces the bounded busy-poll inside Connect. Defaults to
	// a backoff/v5 exponential strategy.
	IdleStrategy IdleStrategy
}

// DefaultLibraryConfig returns a configuration with every nested concern
// defaulted and LibraryID set from the argument; Connect.Channels defaults
// to a single local engine, and SessionAcquireHandler must still be set by
// the caller.
func DefaultLibraryConfig(libraryID int32) LibraryConfig {
	return LibraryConfig{
		LibraryID:                 libraryID,
		InstanceID:                uuid.New(),
		DefaultHeartbeatIntervalS: 30,
		Connect:                   DefaultConnectConfig(),
		Liveness:                  DefaultLivenessConfig(),
		Reply:                     DefaultReplyConfig(),
		Log:                       LogConfig{Level: "info"},
	}
}

// validateConfig fills in zero-valued fields with defaults and rejects
// structurally impossible configurations with InvalidConfiguration: a
// misconfigured library is a programmer error caught at startup, not a
// runtime condition to recover from.
func validateConfig(cfg *LibraryConfig) error {
	if len(cfg.Connect.Channels) == 0 {
		return NewLibraryError(InvalidConfiguration, cfg.LibraryID, "at least one connect channel is required")
	}
	if cfg.Connect.ReplyTimeoutMs <= 0 {
		cfg.Connect.ReplyTimeoutMs = 5_000
	}
	if cfg.Liveness.TimeoutMs <= 0 {
		cfg.Liveness.TimeoutMs = 5_000
	}
	if cfg.Reply.ArrivalTimeoutMs <= 0 {
		cfg.Reply.ArrivalTimeoutMs = 5_000
	}
	if cfg.Reply.PublishRetryWindowMs <= 0 {
		cfg.Reply.PublishRetryWindowMs = 1_000
	}
	if cfg.DefaultHeartbeatIntervalS <= 0 {
		cfg.DefaultHeartbeatIntervalS = 30
	}
	if cfg.InstanceID == uuid.Nil {
		cfg.InstanceID = uuid.New()
	}
	if cfg.ConnectHandler == nil {
		cfg.ConnectHandler = noopConnectHandler{}
	}
	if cfg.SessionExistsHandler == nil {
		cfg.SessionExistsHandler = noopSessionExistsHandler{}
	}
	if cfg.SentPositionHandler == nil {
		cfg.SentPositionHandler = noopSentPositionHandler{}
	}
	if cfg.SessionAcquireHandler == nil {
		return NewLibraryError(InvalidConfiguration, cfg.LibraryID, "a SessionAcquireHandler is required")
	}
	logger := createLogger(cfg.Log)
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler{logger: logger}
	}
	if cfg.IdleStrategy == nil {
		cfg.IdleStrategy = NewBackoffIdleStrategy(time.Millisecond, time.Second)
	}
	return nil
}

func (c LibraryConfig) String() string {
	return fmt.Sprintf("LibraryConfig{id=%d instance=%s channels=%v}", c.LibraryID, c.InstanceID, c.Connect.Channels)
}
