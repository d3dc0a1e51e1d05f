package shmtransport

import (
	"path/filepath"

	"github.com/Kost1s/artio/transport"
)

// Factory builds shared-memory ring transports rooted at a base directory,
// one ring file per channel name. It satisfies library.TransportFactory by
// method shape alone; this package never imports the library package, so
// there is no dependency cycle.
type Factory struct {
	dir      string
	capacity int64
}

// NewFactory returns a Factory that maps each channel name to dir/<channel>.ring.
func NewFactory(dir string, capacity int64) *Factory {
	return &Factory{dir: dir, capacity: capacity}
}

func (f *Factory) path(channel string) string {
	return filepath.Join(f.dir, channel+".ring")
}

// NewPublication opens the ring file for channel and returns its Publication side.
func (f *Factory) NewPublication(channel string) (transport.Publication, error) {
	return NewPublication(f.path(channel), f.capacity)
}

// NewSubscription opens the ring file for channel and returns its Subscription side.
func (f *Factory) NewSubscription(channel string) (transport.Subscription, error) {
	return NewSubscription(f.path(channel), f.capacity)
}
