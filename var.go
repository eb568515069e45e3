package stm

// Var is a convenience handle onto one word of an Engine's own Memory
// arena, offering an ergonomic API (Load/Store taking a *Txn directly) on
// top of the literal address-based Engine.Load/Store. Most callers that
// don't need to manage their own Memory should use Var.
type Var struct {
	engine *Engine
	addr   uint64
}

// NewVar allocates a word from e's memory arena and initializes it.
func (e *Engine) NewVar(initial uint64) *Var {
	addr := e.allocWord()
	e.memory.at(addr).Store(initial)
	return &Var{engine: e, addr: addr}
}

// NewVar allocates a variable from the package-level default engine.
func NewVar(initial uint64) *Var {
	return Default().NewVar(initial)
}

// Load reads v's current value within tx.
func (v *Var) Load(tx *Txn) (uint64, error) {
	return v.engine.Load(tx, v.addr)
}

// Store buffers (CTL) or immediately acquires and writes (ETL/
// write-through) a new value for v within tx.
func (v *Var) Store(tx *Txn, val uint64) error {
	return v.engine.Store(tx, v.addr, val)
}

// StoreMasked writes only the bits set in mask, leaving the others
// untouched at commit.
func (v *Var) StoreMasked(tx *Txn, val, mask uint64) error {
	return v.engine.StoreMasked(tx, v.addr, val, mask)
}

// Addr returns v's underlying address, for callers that want to mix Var
// and raw Engine.Load/Store calls.
func (v *Var) Addr() uint64 {
	return v.addr
}
