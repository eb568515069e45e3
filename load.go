package stm

import (
	"runtime"
	"time"
)

// fullMask is the mask value StoreMasked callers (and plain Store,
// internally) use to mean "overwrite the whole word".
const fullMask = ^uint64(0)

// spinBackoff busy-waits with an increasing backoff, used whenever a
// reader or writer finds a stripe held by someone else: yield to the
// scheduler first, then fall back to a short sleep. It never gives up --
// the engine is obstruction-free, not wait-free.
func spinBackoff(attempt int) {
	if attempt < 32 {
		runtime.Gosched()
		return
	}
	time.Sleep(time.Microsecond)
}

// Load performs a consistent snapshot read of addr within tx. On conflict
// it rolls tx back and returns an *AbortError; the Run/Atomically retry
// loop handles it internally unless Attr.NoRetry is set.
func (e *Engine) Load(tx *Txn, addr uint64) (uint64, error) {
	// Step 1: already in our own write set with a full-mask entry.
	if tx.mightHaveWritten(addr) {
		if idx, ok := tx.index[addr]; ok {
			we := &tx.writeSet[idx]
			if we.mask == fullMask {
				return we.value, nil
			}
		}
	}

	slot := e.table.slotFor(addr)
	word := e.memory.at(addr)

	for attempt := 0; ; attempt++ {
		l1, p1 := slot.load()
		if l1 {
			if ownedVer, ok := tx.ownedVersion(slot); ok {
				// We hold this stripe ourselves (ETL/write-through acquire
				// at Store time, not at commit), so there is no concurrent
				// writer to wait out. Read straight through and merge any
				// partial-mask write of our own to addr, the same as the
				// unlocked path below.
				v := word.Load()
				if idx, ok := tx.index[addr]; ok {
					we := &tx.writeSet[idx]
					v = (v &^ we.mask) | (we.value & we.mask)
				}
				if !tx.ro {
					tx.readSet = append(tx.readSet, readEntry{slot: slot, version: ownedVer})
				}
				return v, nil
			}
			// Locked by another transaction's commit, or by an in-flight
			// unit_store (LOCK_UNIT); either way we just retry.
			spinBackoff(attempt)
			continue
		}

		v := word.Load()

		l2, p2 := slot.load()
		if l1 != l2 || p1 != p2 {
			continue // sandwich mismatch, restart
		}
		ver := p1

		if ver > tx.end {
			if tx.ro || !tx.canExtend {
				return 0, e.abort(tx, ReasonValRead)
			}
			if !tx.extend() {
				return 0, e.abort(tx, ReasonValRead)
			}
			// Re-sandwich: make sure the slot hasn't moved since we
			// extended.
			l3, p3 := slot.load()
			if l3 || p3 != p1 {
				continue
			}
		}

		if idx, ok := tx.index[addr]; ok {
			we := &tx.writeSet[idx]
			v = (v &^ we.mask) | (we.value & we.mask)
		}

		if !tx.ro {
			tx.readSet = append(tx.readSet, readEntry{slot: slot, version: ver})
		}
		return v, nil
	}
}

// extend slides tx's snapshot bound forward to the current clock value,
// provided the existing read set still validates.
func (tx *Txn) extend() bool {
	e := tx.engine
	if e.clock.Read() >= e.versionMax {
		// Drive the rollover ourselves rather than failing and hoping some
		// other thread's commit happens to trigger one: under a read-heavy
		// workload no one else may ever call maybeRollover. The caller
		// still aborts below; its retry will run against the reset clock.
		e.maybeRollover(tx.handle)
		return false
	}
	now := e.clock.Read()
	if !tx.validate() {
		return false
	}
	tx.end = now
	return true
}

// validate re-checks every read-set entry against the live lock table.
// It uses plain atomic loads; no locks are taken.
func (tx *Txn) validate() bool {
	for _, r := range tx.readSet {
		locked, payload := r.slot.load()
		if !locked {
			if payload == r.version {
				continue
			}
			return false
		}
		// A stripe we hold ourselves -- under any variant -- is never
		// stale for our own read of it; compare against the version we
		// recorded at acquire time instead of treating "locked" as
		// automatically invalid.
		if v, ok := tx.ownedVersion(r.slot); ok && v == r.version {
			continue
		}
		return false
	}
	return true
}

// ownedVersion reports the version a currently-acquired write-set entry
// recorded for slot, if tx itself holds it.
func (tx *Txn) ownedVersion(slot *lockWord) (uint64, bool) {
	for _, idx := range tx.locked {
		we := &tx.writeSet[idx]
		if we.slot == slot {
			return we.version, true
		}
	}
	return 0, false
}

// UnitLoad performs a non-transactional, timestamp-consistent read.
// Like a transactional Load, it retries while the stripe is locked,
// whether by a unit store (LOCK_UNIT) or by a transaction.
func (e *Engine) UnitLoad(addr uint64) (value uint64, version uint64) {
	slot := e.table.slotFor(addr)
	word := e.memory.at(addr)
	for attempt := 0; ; attempt++ {
		l1, p1 := slot.load()
		if l1 {
			spinBackoff(attempt)
			continue
		}
		v := word.Load()
		l2, p2 := slot.load()
		if l1 == l2 && p1 == p2 {
			return v, p1
		}
	}
}
