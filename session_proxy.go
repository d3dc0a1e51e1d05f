package library

import (
	"time"

	"github.com/Kost1s/artio/transport"
)

// SessionProxy is the sole path through which the poller publishes onto the
// engine's control channel. It owns the back-pressured retry loop every
// outbound send goes through, grounded on comet's MmapWriter.Write:
// allocate/offer, and on Offer() returning negative (back-pressure) retry
// with the configured idle strategy until either success or the retry
// window elapses.
type SessionProxy struct {
	publication transport.Publication
	idle        IdleStrategy
	retryMs     int64
	logger      Logger
}

// NewSessionProxy constructs a proxy over publication, retrying a
// back-pressured Offer for up to retryWindowMs before giving up.
func NewSessionProxy(publication transport.Publication, idle IdleStrategy, retryWindowMs int64, logger Logger) *SessionProxy {
	return &SessionProxy{publication: publication, idle: idle, retryMs: retryWindowMs, logger: logger}
}

// offer retries a back-pressured publish until it succeeds, the transport
// reports an unrecoverable error, or retryMs has elapsed, at which point it
// reports TIMED_OUT via a false return so the caller can fail its reply.
func (p *SessionProxy) offer(nowMs func() int64, fragment []byte) (int64, error, bool) {
	deadline := nowMs() + p.retryMs
	p.idle.Reset()
	for {
		pos, err := p.publication.Offer(fragment)
		if err != nil {
			return 0, err, false
		}
		if pos >= 0 {
			return pos, nil, true
		}
		if nowMs() >= deadline {
			return 0, nil, false
		}
		p.idle.Idle()
	}
}

// SendLibraryConnect publishes the handshake message that begins C6's
// connect sequence.
func (p *SessionProxy) SendLibraryConnect(nowMs func() int64, m transport.LibraryConnect) (int64, bool, error) {
	pos, err, ok := p.offer(nowMs, encodeLibraryConnect(m))
	return pos, ok, err
}

// SendInitiateConnection publishes an outbound initiator request, returning
// the stream position, whether it was accepted within the retry window, and
// any unrecoverable transport error.
func (p *SessionProxy) SendInitiateConnection(nowMs func() int64, m transport.InitiateConnection) (int64, bool, error) {
	pos, err, ok := p.offer(nowMs, encodeInitiateConnection(m))
	return pos, ok, err
}

// SendReleaseSession publishes a release-to-engine request.
func (p *SessionProxy) SendReleaseSession(nowMs func() int64, m transport.ReleaseSession) (int64, bool, error) {
	pos, err, ok := p.offer(nowMs, encodeReleaseSession(m))
	return pos, ok, err
}

// SendRequestSession publishes a request-acquisition request.
func (p *SessionProxy) SendRequestSession(nowMs func() int64, m transport.RequestSession) (int64, bool, error) {
	pos, err, ok := p.offer(nowMs, encodeRequestSession(m))
	return pos, ok, err
}

// Close releases the underlying publication.
func (p *SessionProxy) Close() error {
	return p.publication.Close()
}

// nowMillis is the default clock source, matching the original's
// System.currentTimeMillis() call sites throughout LibraryPoller.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
