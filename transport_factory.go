package library

import "github.com/Kost1s/artio/transport"

// TransportFactory builds the control-plane publication and subscription
// pair for a given engine channel address. Concrete implementations live in
// the shmtransport and udptransport packages; the library package depends
// only on this seam so C6 never imports a wire-format package directly.
type TransportFactory interface {
	NewPublication(channel string) (transport.Publication, error)
	NewSubscription(channel string) (transport.Subscription, error)
}
