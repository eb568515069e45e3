package stm

// ThreadHandle is what InitThread hands back: a per-thread (per-goroutine,
// in Go) slot holding that thread's transaction descriptor and its link in
// the live-thread registry used for quiescence. Go has no library-visible
// OS TLS, so callers hold and pass this explicitly rather than relying on
// an implicit thread-local lookup.
type ThreadHandle struct {
	id  uint64
	txn *Txn

	engine *Engine
	next   *ThreadHandle
}

// Txn returns this thread's reusable transaction descriptor.
func (h *ThreadHandle) Txn() *Txn {
	return h.txn
}

// InitThread allocates and registers a new thread handle. The caller must
// call ExitThread when done.
func (e *Engine) InitThread() *ThreadHandle {
	id := e.nextThreadID.Add(1)
	h := &ThreadHandle{id: id, engine: e}
	h.txn = newTxn(e, h)

	e.mu.Lock()
	h.next = e.registryHead
	e.registryHead = h
	e.liveThreads++
	e.mu.Unlock()

	if e.cfg.Telemetry.Enabled() {
		e.cfg.Telemetry.ThreadAttached(id)
	}
	return h
}

// ExitThread unregisters a thread handle. h must not be used afterward.
func (e *Engine) ExitThread(h *ThreadHandle) {
	e.mu.Lock()
	if e.registryHead == h {
		e.registryHead = h.next
	} else {
		for p := e.registryHead; p != nil; p = p.next {
			if p.next == h {
				p.next = h.next
				break
			}
		}
	}
	e.liveThreads--
	e.mu.Unlock()

	if e.cfg.Telemetry.Enabled() {
		e.cfg.Telemetry.ThreadDetached(h.id)
	}
}

// liveThreadCount reports the registry's size, used by the quiescence
// barrier to know when every other thread has gone idle.
func (e *Engine) liveThreadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveThreads
}

