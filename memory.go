package stm

import "sync/atomic"

// Memory is a flat array of addressable machine words: every shared value
// is a fixed-width unsigned word, the same width as a pointer. Addresses
// are byte offsets into this array, word-aligned; Addr converts a word
// index into the address callers pass to Load/Store.
type Memory struct {
	words []atomic.Uint64
}

// NewMemory allocates n addressable words, all initialized to zero.
func NewMemory(n int) *Memory {
	return &Memory{words: make([]atomic.Uint64, n)}
}

// Addr returns the byte address of the i'th word in m. Engine.Load/Store/
// StoreMasked resolve such an address against the engine's own arena.
func (m *Memory) Addr(i int) uint64 {
	return uint64(i) * (1 << wordShift)
}

// Len reports how many words this Memory holds.
func (m *Memory) Len() int {
	return len(m.words)
}

func (m *Memory) at(addr uint64) *atomic.Uint64 {
	return &m.words[addr>>wordShift]
}
