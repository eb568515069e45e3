package stm

// Store buffers (CTL) or immediately acquires and writes (ETL/
// write-through) a full-word new value for addr within tx.
func (e *Engine) Store(tx *Txn, addr uint64, value uint64) error {
	return e.storeMasked(tx, addr, value, fullMask)
}

// StoreMasked writes only the bits set in mask, leaving the others as they
// were at commit.
func (e *Engine) StoreMasked(tx *Txn, addr uint64, value, mask uint64) error {
	return e.storeMasked(tx, addr, value, mask)
}

func (e *Engine) storeMasked(tx *Txn, addr, value, mask uint64) error {
	if tx.ro {
		// A region that misdeclared itself read-only restarts without the
		// hint instead of failing silently.
		tx.ro = false
		return e.abort(tx, ReasonROWrite)
	}
	switch e.cfg.Variant {
	case VariantETL:
		return e.storeETL(tx, addr, value, mask)
	case VariantWriteThrough:
		return e.storeWriteThrough(tx, addr, value, mask)
	default:
		return e.storeCTL(tx, addr, value, mask)
	}
}

func (e *Engine) mergeExisting(tx *Txn, idx int, value, mask uint64) {
	we := &tx.writeSet[idx]
	we.value = (we.value &^ mask) | (value & mask)
	we.mask |= mask
}

// storeCTL is the default variant: record the write, acquiring nothing
// until commit.
func (e *Engine) storeCTL(tx *Txn, addr, value, mask uint64) error {
	if tx.mightHaveWritten(addr) {
		if idx, ok := tx.index[addr]; ok {
			e.mergeExisting(tx, idx, value, mask)
			return nil
		}
	}

	slot := e.table.slotFor(addr)
	for attempt := 0; ; attempt++ {
		locked, ver := slot.load()
		if locked {
			spinBackoff(attempt)
			continue
		}
		if ver > tx.end && (!tx.canExtend || tx.inReadSet(slot)) {
			return e.abort(tx, ReasonValWrite)
		}
		// Either ver <= tx.end, or it's newer but absent from the read
		// set and extension is possible: commit-time validation will
		// cover it.
		tx.writeSet = append(tx.writeSet, writeEntry{
			addr: addr, value: value, mask: mask, slot: slot, version: ver,
		})
		tx.index[addr] = len(tx.writeSet) - 1
		tx.recordBloom(addr)
		return nil
	}
}

// storeETL acquires the stripe immediately, at encounter time.
func (e *Engine) storeETL(tx *Txn, addr, value, mask uint64) error {
	if tx.mightHaveWritten(addr) {
		if idx, ok := tx.index[addr]; ok {
			e.mergeExisting(tx, idx, value, mask)
			return nil
		}
	}

	slot := e.table.slotFor(addr)
	if ownerIdx, ok := tx.ownerIndexForSlot(slot); ok {
		owner := &tx.writeSet[ownerIdx]
		tx.writeSet = append(tx.writeSet, writeEntry{
			addr: addr, value: value, mask: mask, slot: slot,
			version: owner.version, noDrop: true, acquired: true,
		})
		idx := len(tx.writeSet) - 1
		tx.index[addr] = idx
		tx.recordBloom(addr)
		return nil
	}

	for attempt := 0; ; attempt++ {
		locked, ver := slot.load()
		if locked {
			spinBackoff(attempt)
			continue
		}
		if !slot.tryAcquire(ver) {
			continue
		}
		tx.writeSet = append(tx.writeSet, writeEntry{
			addr: addr, value: value, mask: mask, slot: slot,
			version: ver, noDrop: false, acquired: true,
		})
		idx := len(tx.writeSet) - 1
		tx.index[addr] = idx
		tx.locked = append(tx.locked, idx)
		tx.nbAcquired++
		tx.recordBloom(addr)
		return nil
	}
}

// storeWriteThrough acquires the stripe and publishes the new value
// immediately, saving the prior value for rollback.
func (e *Engine) storeWriteThrough(tx *Txn, addr, value, mask uint64) error {
	word := e.memory.at(addr)

	if tx.mightHaveWritten(addr) {
		if idx, ok := tx.index[addr]; ok {
			e.mergeExisting(tx, idx, value, mask)
			old := word.Load()
			word.Store((old &^ mask) | (value & mask))
			return nil
		}
	}

	slot := e.table.slotFor(addr)
	if ownerIdx, ok := tx.ownerIndexForSlot(slot); ok {
		owner := &tx.writeSet[ownerIdx]
		old := word.Load()
		newVal := (old &^ mask) | (value & mask)
		word.Store(newVal)
		tx.writeSet = append(tx.writeSet, writeEntry{
			addr: addr, value: newVal, mask: fullMask, slot: slot,
			version: owner.version, old: old, noDrop: true, acquired: true,
		})
		idx := len(tx.writeSet) - 1
		tx.index[addr] = idx
		tx.recordBloom(addr)
		return nil
	}

	for attempt := 0; ; attempt++ {
		locked, ver := slot.load()
		if locked {
			spinBackoff(attempt)
			continue
		}
		if !slot.tryAcquire(ver) {
			continue
		}
		old := word.Load()
		newVal := (old &^ mask) | (value & mask)
		word.Store(newVal)
		tx.writeSet = append(tx.writeSet, writeEntry{
			addr: addr, value: newVal, mask: fullMask, slot: slot,
			version: ver, old: old, noDrop: false, acquired: true,
		})
		idx := len(tx.writeSet) - 1
		tx.index[addr] = idx
		tx.locked = append(tx.locked, idx)
		tx.nbAcquired++
		tx.recordBloom(addr)
		return nil
	}
}
