package stm

// Commit runs the two-phase commit pipeline. It returns (true, nil) on
// success and (false, *AbortError) if tx was rolled back -- the rollback
// has already happened by the time this returns, on the caller's behalf.
func (e *Engine) Commit(tx *Txn) (bool, error) {
	tx.nesting--
	if tx.nesting > 0 {
		return true, nil
	}

	if len(tx.writeSet) == 0 {
		return e.finishCommit(tx)
	}

	tx.setStatus(StatusCommitting)
	e.runCallbacks(onPrecommit, tx)

	if e.cfg.Variant == VariantCTL {
		if err := e.acquireAllCTL(tx); err != nil {
			return false, err
		}
	}
	// ETL and write-through transactions already hold every stripe they
	// need, acquired eagerly by Store.

	rolloversBefore := e.stats.rollovers.Load()
	e.maybeRollover(tx.handle)
	if e.stats.rollovers.Load() != rolloversBefore {
		// The rollover reset every lock-word, including the ones tx holds,
		// so there is nothing left to release; tx's snapshot predates the
		// reset and cannot commit against it.
		tx.locked = tx.locked[:0]
		tx.nbAcquired = 0
		return false, e.abort(tx, ReasonValidate)
	}
	t := e.clock.Bump() + 1

	if tx.start != t-1 {
		// Someone else committed since we started; our read set must be
		// re-checked against the current table. If we are provably the
		// only writer since start, this is skipped as a pure optimization.
		if !tx.validate() {
			return false, e.abort(tx, ReasonValidate)
		}
	}

	e.installAndRelease(tx, t)

	return e.finishCommit(tx)
}

func (e *Engine) finishCommit(tx *Txn) (bool, error) {
	tx.setStatus(StatusCommitted)
	e.stats.commits.Add(1)
	e.runCallbacks(onCommit, tx)
	tx.setStatus(StatusIdle)
	return true, nil
}

// acquireAllCTL locks every stripe in tx's write set, in reverse write-log
// order. A stripe two of tx's own write entries share is only ever
// CAS-acquired once; later entries targeting it are marked noDrop so
// install-and-release doesn't double-release.
func (e *Engine) acquireAllCTL(tx *Txn) error {
	for i := len(tx.writeSet) - 1; i >= 0; i-- {
		we := &tx.writeSet[i]

		if ownerIdx, ok := tx.ownerIndexForSlot(we.slot); ok {
			owner := &tx.writeSet[ownerIdx]
			we.version = owner.version
			we.noDrop = true
			we.acquired = true
			continue
		}

		for attempt := 0; ; attempt++ {
			locked, ver := we.slot.load()
			if locked {
				return e.abort(tx, ReasonWWConflict)
			}
			if we.slot.tryAcquire(ver) {
				we.version = ver
				we.noDrop = false
				we.acquired = true
				tx.nbAcquired++
				tx.locked = append(tx.locked, i)
				break
			}
			// Lost the CAS race to a concurrent acquirer; reread and
			// retry.
			spinBackoff(attempt)
		}
	}
	return nil
}

// installAndRelease writes every buffered value and then releases every
// lock tx holds. Install happens in full before any release: doing both
// together per-entry, in a single forward pass, would let a concurrent
// reader observe a shared stripe's new timestamp before every write under
// it has actually landed when two addresses collide on one stripe. Two
// passes -- install everything, then release everything -- keeps that
// observation impossible while still installing addr-by-addr in
// write-log order.
func (e *Engine) installAndRelease(tx *Txn, t uint64) {
	for i := range tx.writeSet {
		we := &tx.writeSet[i]
		word := e.memory.at(we.addr)
		if we.mask == fullMask {
			word.Store(we.value)
		} else {
			old := word.Load()
			word.Store((old &^ we.mask) | (we.value & we.mask))
		}
	}
	for _, idx := range tx.locked {
		we := &tx.writeSet[idx]
		if !we.noDrop {
			we.slot.commitRelease(t)
		}
	}
	tx.locked = tx.locked[:0]
	tx.nbAcquired = 0
}
