package stm

// bloomBit hashes addr down to one of 32 bits for the optional write-set
// Bloom filter. The filter only ever produces false positives, never false
// negatives, so it is safe to use as a fast pre-check before the
// authoritative index-map lookup.
func bloomBit(addr uint64) uint32 {
	h := addr * 0x9E3779B97F4A7C15 // Fibonacci hashing constant
	return uint32(1) << uint(((h >> 58) & 31))
}

// mightHaveWritten reports whether addr could already be in tx's write
// set. When the Bloom filter is disabled it always answers true, deferring
// entirely to the index map.
func (tx *Txn) mightHaveWritten(addr uint64) bool {
	if !tx.engine.cfg.EnableWriteBloom {
		return true
	}
	return tx.bloom&bloomBit(addr) != 0
}

func (tx *Txn) recordBloom(addr uint64) {
	if tx.engine.cfg.EnableWriteBloom {
		tx.bloom |= bloomBit(addr)
	}
}

// inReadSet reports whether slot already has an entry in tx's read set.
// Store needs this to decide whether an out-of-snapshot version can be
// deferred to commit-time validation.
func (tx *Txn) inReadSet(slot *lockWord) bool {
	for _, r := range tx.readSet {
		if r.slot == slot {
			return true
		}
	}
	return false
}

// ownerIndexForSlot returns the write-set index of the first entry (by
// acquisition order) that already holds slot, if tx holds it at all. Used
// by ETL/write-through Store to chain additional same-stripe writes
// without a second acquire, and by the CTL acquire-all phase to detect
// stripe collisions within one transaction's own write set.
func (tx *Txn) ownerIndexForSlot(slot *lockWord) (int, bool) {
	for _, idx := range tx.locked {
		if tx.writeSet[idx].slot == slot {
			return idx, true
		}
	}
	return 0, false
}
