package udptransport

import "github.com/Kost1s/artio/transport"

// Factory builds UDP transports where a channel name is the "host:port" to
// dial for publication or to listen on for subscription. It satisfies
// library.TransportFactory by method shape alone, with no import of the
// library package.
type Factory struct{}

// NewFactory returns a UDP transport factory.
func NewFactory() *Factory { return &Factory{} }

// NewPublication dials channel (a "host:port" address) and returns its
// Publication side.
func (f *Factory) NewPublication(channel string) (transport.Publication, error) {
	return Dial(channel)
}

// NewSubscription listens on channel (a "host:port" address) and returns
// its Subscription side.
func (f *Factory) NewSubscription(channel string) (transport.Subscription, error) {
	return Listen(channel)
}
