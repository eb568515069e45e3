package stm

import "sync/atomic"

// Status is a transaction's lifecycle state. Odd values are "active": a
// descriptor counts toward quiescence and may still touch the lock table.
type Status int32

const (
	StatusIdle        Status = 0
	StatusActive      Status = 1
	StatusCommitting  Status = 3
	StatusCommitted   Status = 4
	StatusAborting    Status = 5
	StatusAborted     Status = 6
	StatusIrrevocable Status = 7
)

// IsActive reports whether the low bit is set: the status word's
// is-active encoding.
func (s Status) IsActive() bool {
	return s&1 == 1
}

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusActive:
		return "active"
	case StatusCommitting:
		return "committing"
	case StatusCommitted:
		return "committed"
	case StatusAborting:
		return "aborting"
	case StatusAborted:
		return "aborted"
	case StatusIrrevocable:
		return "irrevocable"
	default:
		return "unknown"
	}
}

// readEntry is one line of the read set: the stripe and the version this
// transaction observed there.
type readEntry struct {
	slot    *lockWord
	version uint64
}

// writeEntry is one line of the write set. old holds the pre-write value,
// used only by VariantWriteThrough's rollback.
type writeEntry struct {
	addr      uint64
	value     uint64
	mask      uint64
	slot      *lockWord
	version   uint64
	old       uint64
	noDrop    bool
	acquired  bool
}

// Txn is a transaction descriptor. A Txn is obtained from a ThreadHandle
// and reused across restarts; fields are reset by prepare, not
// reallocated, to keep the hot path allocation-free.
type Txn struct {
	id uint64

	status atomic.Int32

	start uint64
	end   uint64

	ro         bool
	canExtend  bool
	nesting    int
	abortReason Reason

	readSet  []readEntry
	writeSet []writeEntry
	// index speeds up "is addr already in the write set" lookups; CTL step
	// 1 and step 3 both need it on every Load/Store call.
	index map[uint64]int

	bloom uint32

	attr Attr

	specifics [maxSpecificsHardLimit]any

	engine *Engine
	handle *ThreadHandle

	nbAcquired int
	locked     []int // indices into writeSet currently held by this txn
}

// maxSpecificsHardLimit bounds the fixed specifics array; Config.MaxSpecifics
// must not exceed it. 16 is generous for any realistic caller.
const maxSpecificsHardLimit = 16

func newTxn(e *Engine, h *ThreadHandle) *Txn {
	tx := &Txn{engine: e, handle: h}
	tx.readSet = make([]readEntry, 0, e.cfg.InitialLogSize)
	tx.writeSet = make([]writeEntry, 0, e.cfg.InitialLogSize)
	tx.index = make(map[uint64]int, e.cfg.InitialLogSize)
	tx.status.Store(int32(StatusIdle))
	return tx
}

func (tx *Txn) getStatus() Status {
	return Status(tx.status.Load())
}

func (tx *Txn) setStatus(s Status) {
	tx.status.Store(int32(s))
}

// Active reports whether tx is currently running a region.
func (tx *Txn) Active() bool {
	return tx.getStatus().IsActive()
}

// Aborted reports whether tx's most recent attempt ended in ABORTED.
func (tx *Txn) Aborted() bool {
	return tx.getStatus() == StatusAborted
}

// SetSpecific stores an opaque per-transaction value.
func (tx *Txn) SetSpecific(key int, val any) error {
	if key < 0 || key >= tx.engine.cfg.MaxSpecifics {
		return ErrTooManySpecifics
	}
	tx.specifics[key] = val
	return nil
}

// GetSpecific retrieves a value stored by SetSpecific.
func (tx *Txn) GetSpecific(key int) any {
	if key < 0 || key >= tx.engine.cfg.MaxSpecifics {
		return nil
	}
	return tx.specifics[key]
}

// resetLogs clears the read/write sets and bookkeeping between attempts,
// without reallocating backing arrays.
func (tx *Txn) resetLogs() {
	tx.readSet = tx.readSet[:0]
	tx.writeSet = tx.writeSet[:0]
	tx.locked = tx.locked[:0]
	tx.nbAcquired = 0
	tx.abortReason = ReasonNone
	for k := range tx.index {
		delete(tx.index, k)
	}
	tx.bloom = 0
}

// prepare starts a fresh attempt: resample the clock, reset logs, go
// ACTIVE. Instead of a non-local jump back into a saved restart point, the
// Run/Atomically loop calls this directly on each retry.
func (tx *Txn) prepare(attr Attr) {
	tx.engine.awaitQuiesceClear(tx)
	tx.attr = attr
	tx.ro = attr.ReadOnly
	tx.canExtend = true
	tx.resetLogs()
	tx.start = tx.engine.clock.Read()
	tx.end = tx.start
	tx.setStatus(StatusActive)
	tx.engine.runCallbacks(onStart, tx)
}
