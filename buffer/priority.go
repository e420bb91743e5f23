package buffer

import (
	"sync/atomic"
)

// epochCounter hands out a monotonically increasing counter value, standing
// in for the steady-clock epoch at push time. Pop always returns the
// highest-priority record, so a strictly increasing counter means the most
// recently pushed item is returned first: later pushes outrank earlier
// ones.
type epochCounter struct {
	next atomic.Uint64
}

// defaultPriority returns a fresh priority value for the default,
// caller-unaware priority function.
func (e *epochCounter) defaultPriority() uint64 {
	return e.next.Add(1)
}
