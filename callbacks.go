package stm

// callbackKind enumerates the six hook points Register lets a caller
// attach to: on_init, on_exit, on_start, on_precommit, on_commit, on_abort.
type callbackKind int

const (
	onInit callbackKind = iota
	onExit
	onStart
	onPrecommit
	onCommit
	onAbort
	numCallbackKinds
)

type callback struct {
	fn  func(tx *Txn, arg any)
	arg any
}

// Register attaches callbacks for one or more of the six hook kinds. Any
// nil function is skipped. Registration is bounded by Config.MaxCallbacks
// per kind; a fixed-size callback table that's full is a caller error, not
// something to silently grow.
func (e *Engine) Register(onInitFn, onExitFn, onStartFn, onPrecommitFn, onCommitFn, onAbortFn func(tx *Txn, arg any), arg any) error {
	kinds := []struct {
		kind callbackKind
		fn   func(tx *Txn, arg any)
	}{
		{onInit, onInitFn},
		{onExit, onExitFn},
		{onStart, onStartFn},
		{onPrecommit, onPrecommitFn},
		{onCommit, onCommitFn},
		{onAbort, onAbortFn},
	}
	e.callbacksMu.Lock()
	defer e.callbacksMu.Unlock()
	for _, k := range kinds {
		if k.fn == nil {
			continue
		}
		if len(e.callbacks[k.kind]) >= e.cfg.MaxCallbacks {
			return ErrTooManyCallbacks
		}
	}
	for _, k := range kinds {
		if k.fn == nil {
			continue
		}
		e.callbacks[k.kind] = append(e.callbacks[k.kind], callback{fn: k.fn, arg: arg})
	}
	return nil
}

func (e *Engine) runCallbacks(kind callbackKind, tx *Txn) {
	e.callbacksMu.RLock()
	cbs := e.callbacks[kind]
	e.callbacksMu.RUnlock()
	for _, cb := range cbs {
		cb.fn(tx, cb.arg)
	}
}
