package stm

import "sync/atomic"

// lockedPayload is the payload every ordinary transactional acquire writes
// into a locked lock-word. Correctness of the CTL/ETL pipelines never
// depends on distinguishing *which* transaction holds a stripe from the
// payload alone -- a transaction always knows, locally, which stripes it
// already holds (Txn.locked) -- so a single constant suffices and keeps the
// lock word genuinely a two-state sum type (version | owned-marker),
// rather than tagging it with a recoverable owner pointer.
const lockedPayload = 1

// unitSentinel is LOCK_UNIT: a reserved payload value used only by
// unit_store while a non-transactional write is in flight. It can never
// collide with lockedPayload (1 != payloadMask), so isUnit can tell a
// unit store from an ordinary transactional owner. Load and the commit
// path do not make that distinction: Load retries on either, and the CTL
// acquire-all phase aborts on either.
const unitSentinel = payloadMask

// lockWord is the ownership-table entry: an atomic word that is either
// {version, unlocked} or {owner-marker, locked}.
type lockWord struct {
	bits atomic.Uint64
}

func pack(locked bool, payload uint64) uint64 {
	v := (payload & payloadMask) << lockBits
	if locked {
		v |= 1
	}
	return v
}

func unpack(v uint64) (locked bool, payload uint64) {
	locked = v&1 == 1
	payload = (v >> lockBits) & payloadMask
	return
}

// load performs the acquire-semantics read used throughout the sandwich
// read pattern.
func (l *lockWord) load() (locked bool, payload uint64) {
	return unpack(l.bits.Load())
}

// isUnit reports whether the currently-observed state is the LOCK_UNIT
// sentinel.
func isUnit(locked bool, payload uint64) bool {
	return locked && payload == unitSentinel
}

// tryAcquire CASes an unlocked word with the given observed version into
// the locked state. It fails if the word has changed since the caller last
// observed it (either because it is now locked, or its version moved).
func (l *lockWord) tryAcquire(expectVersion uint64) bool {
	old := pack(false, expectVersion)
	newV := pack(true, lockedPayload)
	return l.bits.CompareAndSwap(old, newV)
}

// tryAcquireUnit is the unit_store path: CAS from unlocked/expectVersion to
// the LOCK_UNIT sentinel.
func (l *lockWord) tryAcquireUnit(expectVersion uint64) bool {
	old := pack(false, expectVersion)
	newV := pack(true, unitSentinel)
	return l.bits.CompareAndSwap(old, newV)
}

// commitRelease publishes a new version with store-release semantics,
// clearing the owned bit. Used both by the CTL/ETL commit install step and
// by unit_store's final release.
func (l *lockWord) commitRelease(version uint64) {
	l.bits.Store(pack(false, version))
}

// releaseTo restores a prior version, used by rollback to undo a speculative
// acquire without advancing the clock.
func (l *lockWord) releaseTo(version uint64) {
	l.bits.Store(pack(false, version))
}

// initUnlocked seeds a fresh lock-word at version 0, used both at
// construction and by quiescence rollover.
func (l *lockWord) initUnlocked() {
	l.bits.Store(pack(false, 0))
}
