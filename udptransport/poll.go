package udptransport

import (
	"net"
	"time"
)

// pollReadTimeout bounds how long a single Poll call blocks waiting for the
// next datagram before giving up and returning to the caller's own bounded
// busy-poll loop. Short enough that Poll never meaningfully blocks the
// caller's own pacing.
const pollReadTimeout = time.Millisecond

func earliestDeadline() time.Time {
	return time.Now().Add(pollReadTimeout)
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
