package stm

// Run drives h's reusable transaction through body until it commits,
// re-invoking body on every internally-detected conflict. This is an
// explicit retry loop rather than a setjmp-style non-local jump:
// Start/body/Commit stand in for the restart target, the region body, and
// the validation-and-install tail respectively.
//
// body should return promptly (propagating the error) after any Load,
// Store, or Abort call reports an error -- the region is already rolled
// back by that point.
func (e *Engine) Run(h *ThreadHandle, attr Attr, body func(tx *Txn) error) error {
	tx := h.txn
	for {
		tx.Start(attr)

		if err := body(tx); err != nil {
			ae, isAbort := err.(*AbortError)
			if !isAbort {
				// body returned an ordinary error without routing through
				// Abort; tx may still hold ETL/write-through locks, so
				// roll it back before propagating.
				_ = tx.Abort(ReasonOther)
				return err
			}
			if ae.Reason == ReasonROWrite {
				// A region that misdeclared itself read-only restarts
				// without the hint.
				attr.ReadOnly = false
			}
			if attr.NoRetry {
				return ae
			}
			continue
		}

		ok, err := tx.Commit()
		if ok {
			return nil
		}
		ae, _ := err.(*AbortError)
		if ae != nil {
			if ae.Reason == ReasonROWrite {
				attr.ReadOnly = false
			}
			if attr.NoRetry {
				return ae
			}
			continue
		}
		return err
	}
}

// Atomically allocates a transient thread handle, runs body to a
// successful commit, and releases the handle: a convenient one-shot call
// for code that does not want to manage a ThreadHandle itself.
func (e *Engine) Atomically(body func(tx *Txn) error) error {
	h := e.InitThread()
	defer e.ExitThread(h)
	return e.Run(h, Attr{}, body)
}

// AtomicallyWithAttr is Atomically with caller-supplied attributes (for
// example Attr{ReadOnly: true} or Attr{NoRetry: true}).
func (e *Engine) AtomicallyWithAttr(attr Attr, body func(tx *Txn) error) error {
	h := e.InitThread()
	defer e.ExitThread(h)
	return e.Run(h, attr, body)
}

// Atomically runs body against the package-level default engine.
func Atomically(body func(tx *Txn) error) error {
	return Default().Atomically(body)
}

// Run runs body against h with default attributes, on the engine h was
// obtained from (for example Default().InitThread).
func Run(h *ThreadHandle, body func(tx *Txn) error) error {
	return h.engine.Run(h, Attr{}, body)
}
