package stm

import "math/bits"

// wordShift is log2(word size in bytes) for a 64-bit machine word.
const wordShift = 3 // 8 bytes

// Table is the ownership table: a fixed, power-of-two array of lock-words
// indexed by a hash of the address. Two addresses that hash to the same
// slot collide deterministically and serialize through it -- this is
// accepted as part of the probabilistic design, not a bug.
type Table struct {
	slots    []lockWord
	mask     uint64
	shift    uint
	scramble bool
}

func newTable(logSize, stripeExtraShift int, scramble bool) *Table {
	if logSize <= 0 {
		logSize = 20
	}
	size := uint64(1) << uint(logSize)
	t := &Table{
		slots:    make([]lockWord, size),
		mask:     size - 1,
		shift:    uint(wordShift + stripeExtraShift),
		scramble: scramble,
	}
	for i := range t.slots {
		t.slots[i].initUnlocked()
	}
	return t
}

// indexFor computes idx(addr) = (addr >> SHIFT) & MASK, optionally
// permuting the result to reduce collisions between neighboring addresses.
func (t *Table) indexFor(addr uint64) uint64 {
	idx := (addr >> t.shift) & t.mask
	if t.scramble {
		idx = scrambleIndex(idx, t.mask)
	}
	return idx
}

// slotFor returns the lock-word governing addr. It never touches addr's
// data word itself -- a pure function of the address, no memory access.
func (t *Table) slotFor(addr uint64) *lockWord {
	return &t.slots[t.indexFor(addr)]
}

// resetAll sets every slot back to unlocked/version-0. Only safe to call
// while every transaction is quiesced.
func (t *Table) resetAll() {
	for i := range t.slots {
		t.slots[i].initUnlocked()
	}
}

// scrambleIndex reverses the bits actually used by mask, spreading the
// low-order address bits (which vary fastest for neighboring addresses)
// across the whole table instead of clustering them in its first few
// slots.
func scrambleIndex(idx, mask uint64) uint64 {
	width := bits.Len64(mask)
	if width == 0 {
		return idx
	}
	return (bits.Reverse64(idx) >> (64 - width)) & mask
}
