package stm

import "sync/atomic"

// lockBits is the width of the lock-word's "owned" flag: the low bit set
// means locked. payloadBits is what remains for a version timestamp or
// owner tag.
const (
	lockBits    = 1
	payloadBits = 64 - lockBits
	payloadMask = (uint64(1) << payloadBits) - 1
)

// Clock is the global monotonically-increasing version clock. Read is an
// acquire load; Bump is a fetch-add returning the pre-increment value.
type Clock struct {
	v atomic.Uint64
}

// Read performs an acquire load of the current clock value.
func (c *Clock) Read() uint64 {
	return c.v.Load()
}

// Bump performs a fetch-add and returns the pre-increment value. Commit
// timestamps are Bump()+1 so they are always distinct from any value a
// concurrent reader may have already observed via Read.
func (c *Clock) Bump() uint64 {
	for {
		old := c.v.Load()
		if c.v.CompareAndSwap(old, old+1) {
			return old
		}
	}
}

// reset is only safe to call while every transaction is quiesced, as part
// of the rollover protocol.
func (c *Clock) reset() {
	c.v.Store(0)
}

// versionMax computes VERSION_MAX: the clock must never exceed
// (payloadMask - maxThreads), leaving slack so that in-flight transactions
// cannot be pushed past the representable version range between a caller
// observing "near overflow" and the quiescence rollover actually running.
func versionMax(maxThreads int) uint64 {
	return payloadMask - uint64(maxThreads)
}
