// Package udptransport implements the transport.Publication/Subscription
// contract over plain UDP datagrams, for deployments where the engine and
// library instance are not colocated. Framing is one fragment per
// datagram, length-prefixed the same way shmtransport frames its ring so
// the two transports' wire fragments are structurally interchangeable.
// Grounded on the general socket-handling shape of
// coachpo-meltica-gateway's exchange adapters, adapted from
// message-oriented websocket framing to raw datagrams since this module's
// control plane is description-level, not wire-level.
package udptransport

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/Kost1s/artio/transport"
)

// maxDatagram bounds a single fragment; larger payloads are a caller error,
// not something this transport fragments further. One published fragment
// is always exactly one message.
const maxDatagram = 64 * 1024

// Publication sends fragments as individual UDP datagrams to a fixed peer.
type Publication struct {
	conn     *net.UDPConn
	position int64
	closed   bool
}

var _ transport.Publication = (*Publication)(nil)

// Dial resolves addr and returns a Publication bound to it.
func Dial(addr string) (*Publication, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, err
	}
	return &Publication{conn: conn}, nil
}

// Offer sends fragment as one datagram. UDP has no flow-control window this
// transport can observe, so Offer never back-pressures (never returns a
// negative position); a full kernel send buffer surfaces as a write error
// instead.
func (p *Publication) Offer(fragment []byte) (int64, error) {
	if p.closed {
		return 0, transport.ErrClosed
	}
	if len(fragment) > maxDatagram {
		return 0, fmt.Errorf("udptransport: fragment of %d bytes exceeds %d", len(fragment), maxDatagram)
	}

	buf := make([]byte, 4+len(fragment))
	binary.LittleEndian.PutUint32(buf, uint32(len(fragment)))
	copy(buf[4:], fragment)

	if _, err := p.conn.Write(buf); err != nil {
		return 0, err
	}
	p.position += int64(len(buf))
	return p.position, nil
}

// Close closes the underlying socket.
func (p *Publication) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.conn.Close()
}

// Subscription receives fragments as individual UDP datagrams on a bound
// local address.
type Subscription struct {
	conn   *net.UDPConn
	closed bool
}

var _ transport.Subscription = (*Subscription)(nil)

// Listen binds addr and returns a Subscription reading from it.
func Listen(addr string) (*Subscription, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &Subscription{conn: conn}, nil
}

// Poll drains up to fragmentLimit datagrams, waiting at most the short
// read deadline from earliestDeadline for each, dispatching each to handler. A handler returning
// transport.Abort stops the drain for this call; UDP offers no redelivery,
// so an aborted fragment is dropped, not retried -- callers that need
// redelivery semantics belong on shmtransport instead.
func (s *Subscription) Poll(handler transport.FragmentHandler, fragmentLimit int) (int, error) {
	if s.closed {
		return 0, transport.ErrClosed
	}

	buf := make([]byte, maxDatagram+4)
	consumed := 0
	for consumed < fragmentLimit {
		if err := s.conn.SetReadDeadline(earliestDeadline()); err != nil {
			return consumed, err
		}
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				break
			}
			return consumed, err
		}
		if n < 4 {
			continue
		}
		length := int(binary.LittleEndian.Uint32(buf[0:4]))
		if length > n-4 {
			continue
		}
		fragment := make([]byte, length)
		copy(fragment, buf[4:4+length])

		if handler(fragment) == transport.Abort {
			break
		}
		consumed++
	}
	return consumed, nil
}

// Close closes the underlying socket.
func (s *Subscription) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
