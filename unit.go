package stm

// UnitStore performs a non-transactional write: CAS the stripe to the unit
// sentinel so concurrent transactional readers can tell a unit write is in
// flight and retry, publish the value, then release with a fresh clock
// timestamp.
func (e *Engine) UnitStore(self *ThreadHandle, addr uint64, value uint64) {
	e.UnitStoreMasked(self, addr, value, fullMask)
}

// UnitStoreMasked is UnitStore restricted to the bits set in mask.
func (e *Engine) UnitStoreMasked(self *ThreadHandle, addr uint64, value uint64, mask uint64) {
	slot := e.table.slotFor(addr)
	word := e.memory.at(addr)

	for attempt := 0; ; attempt++ {
		locked, ver := slot.load()
		if locked {
			spinBackoff(attempt)
			continue
		}
		if !slot.tryAcquireUnit(ver) {
			spinBackoff(attempt)
			continue
		}

		if mask == fullMask {
			word.Store(value)
		} else {
			old := word.Load()
			word.Store((old &^ mask) | (value & mask))
		}

		e.maybeRollover(self)
		t := e.clock.Bump() + 1
		slot.commitRelease(t)
		return
	}
}
