package stm

// Start begins (or, if already nested, counts) a region. There is no jump
// point to return here the way a setjmp-based restart would: Start just
// marks tx ACTIVE and resets its logs; GetEnv reports whether this call
// started a fresh outermost region.
func (tx *Txn) Start(attr Attr) {
	if tx.nesting > 0 {
		tx.nesting++
		return
	}
	tx.nesting = 1
	tx.prepare(attr)
}

// GetEnv reports whether tx is at its outermost nesting level.
func (tx *Txn) GetEnv() (outermost bool) {
	return tx.nesting == 1
}

// Commit runs tx's commit pipeline.
func (tx *Txn) Commit() (bool, error) {
	return tx.engine.Commit(tx)
}

// Abort explicitly aborts tx. The caller must return from its region body
// immediately afterward; there is no non-local jump back to Start.
func (tx *Txn) Abort(reason Reason) error {
	if reason == ReasonNone {
		reason = ReasonExplicit
	}
	return tx.engine.abort(tx, reason)
}
