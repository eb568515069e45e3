package stm

// abort rolls tx back: release every stripe it currently owns, mark it
// ABORTED, run the on_abort callbacks, and hand back an *AbortError for
// the caller (Load/Store/Commit/Abort) to propagate. It never restarts tx
// itself -- that is Run/Atomically's job, driving an explicit retry loop
// instead of a non-local jump back into the region.
func (e *Engine) abort(tx *Txn, reason Reason) error {
	tx.abortReason = reason
	tx.nesting = 0
	tx.setStatus(StatusAborting)

	e.releaseOwned(tx)

	tx.setStatus(StatusAborted)

	e.stats.aborts.Add(1)
	switch reason {
	case ReasonWWConflict:
		e.stats.wwConflicts.Add(1)
	case ReasonValidate, ReasonValRead, ReasonValWrite:
		e.stats.valFailures.Add(1)
	}

	if e.cfg.Telemetry.Enabled() {
		e.cfg.Telemetry.AbortDebug(tx.id, reason.String())
	}
	e.runCallbacks(onAbort, tx)

	return &AbortError{Reason: reason}
}

// releaseOwned releases every lock tx holds. After it returns, nbAcquired
// is zero and no slot still points into the aborted descriptor.
//
// The outer nbAcquired guard reproduces the reference implementation's
// documented behavior: its release loop terminates on nb_acquired == 0
// but scans the whole write set regardless, so correctness depends on an
// initial nb_acquired > 0 guard before it ever starts scanning. We
// reproduce that guard rather than "fixing" it away.
func (e *Engine) releaseOwned(tx *Txn) {
	if e.cfg.Variant == VariantWriteThrough {
		// Every write-through entry, owner or stripe-sharing duplicate
		// alike, already published its value live; all of them need
		// their pre-transaction value restored, not just the ones that
		// hold the lock.
		for i := range tx.writeSet {
			we := &tx.writeSet[i]
			if we.acquired {
				e.memory.at(we.addr).Store(we.old)
			}
		}
	}
	if tx.nbAcquired == 0 {
		tx.locked = tx.locked[:0]
		return
	}
	for _, idx := range tx.locked {
		we := &tx.writeSet[idx]
		if we.noDrop {
			continue
		}
		we.slot.releaseTo(we.version)
		we.acquired = false
		tx.nbAcquired--
	}
	tx.locked = tx.locked[:0]
}
