package library

import (
	"github.com/Kost1s/artio/transport"
)

// fakePublication is an in-memory transport.Publication that never
// back-pressures; every Offer succeeds and records the fragment for
// inspection by the test.
type fakePublication struct {
	sent     [][]byte
	position int64
	closed   bool
	failWith error
}

func (p *fakePublication) Offer(fragment []byte) (int64, error) {
	if p.failWith != nil {
		return 0, p.failWith
	}
	cp := make([]byte, len(fragment))
	copy(cp, fragment)
	p.sent = append(p.sent, cp)
	p.position += int64(len(fragment))
	return p.position, nil
}

func (p *fakePublication) Close() error {
	p.closed = true
	return nil
}

// fakeSubscription is an in-memory transport.Subscription whose queue of
// pending fragments is preloaded by the test. A handler returning Abort
// leaves the fragment at the front of the queue for redelivery, matching
// the real transports' contract.
type fakeSubscription struct {
	queue  [][]byte
	closed bool
}

func (s *fakeSubscription) Poll(handler transport.FragmentHandler, fragmentLimit int) (int, error) {
	consumed := 0
	for consumed < fragmentLimit && len(s.queue) > 0 {
		fragment := s.queue[0]
		if handler(fragment) == transport.Abort {
			return consumed, nil
		}
		s.queue = s.queue[1:]
		consumed++
	}
	return consumed, nil
}

func (s *fakeSubscription) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSubscription) push(fragment []byte) {
	s.queue = append(s.queue, fragment)
}

// fakeFactory hands out one fakePublication/fakeSubscription pair per
// channel name, so a test can reach into the pair it expects a controller
// to pick by indexing channels.
type fakeFactory struct {
	pubs map[string]*fakePublication
	subs map[string]*fakeSubscription
	// failChannels makes NewPublication/NewSubscription return an error for
	// the named channels, simulating an unreachable engine.
	failChannels map[string]bool
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		pubs: make(map[string]*fakePublication),
		subs: make(map[string]*fakeSubscription),
	}
}

func (f *fakeFactory) NewPublication(channel string) (transport.Publication, error) {
	if f.failChannels[channel] {
		return nil, fakeDialError(channel)
	}
	p, ok := f.pubs[channel]
	if !ok {
		p = &fakePublication{}
		f.pubs[channel] = p
	}
	return p, nil
}

func (f *fakeFactory) NewSubscription(channel string) (transport.Subscription, error) {
	if f.failChannels[channel] {
		return nil, fakeDialError(channel)
	}
	s, ok := f.subs[channel]
	if !ok {
		s = &fakeSubscription{}
		f.subs[channel] = s
	}
	return s, nil
}

type fakeDialError string

func (e fakeDialError) Error() string { return "fake dial error: " + string(e) }

var _ TransportFactory = (*fakeFactory)(nil)
