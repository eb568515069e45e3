package stm

import "fmt"

// Reason is the abort-reason bitfield. Reasons are informational only;
// control flow after an abort is uniform regardless of which reason
// fired.
type Reason uint32

const (
	ReasonNone Reason = 0
	// ReasonValRead is set when a load observes a version newer than the
	// transaction's snapshot and extension either isn't permitted or fails.
	ReasonValRead Reason = 1 << iota
	// ReasonValWrite is set when a store observes a version newer than the
	// snapshot and either the stripe is already in the read set or the
	// snapshot cannot be extended.
	ReasonValWrite
	// ReasonValidate is set when post-acquire validation at commit fails.
	ReasonValidate
	// ReasonWWConflict is set when the acquire-all phase finds a stripe
	// already owned by another transaction.
	ReasonWWConflict
	// ReasonROWrite is set when Store is called on a transaction that
	// declared itself read-only; the region restarts without the hint.
	ReasonROWrite
	// ReasonSignal is reserved for the (out-of-scope) fault-to-abort path;
	// the engine only needs to tolerate entering rollback from it.
	ReasonSignal
	// ReasonKilled is reserved for external kill requests.
	ReasonKilled
	// ReasonIrrevocable is reserved; the engine has no irrevocable mode
	// and never sets it.
	ReasonIrrevocable
	// ReasonExplicit is set by a caller-driven Abort call.
	ReasonExplicit
	ReasonOther
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonValRead:
		return "val_read"
	case ReasonValWrite:
		return "val_write"
	case ReasonValidate:
		return "validate"
	case ReasonWWConflict:
		return "ww_conflict"
	case ReasonROWrite:
		return "ro_write"
	case ReasonSignal:
		return "signal"
	case ReasonKilled:
		return "killed"
	case ReasonIrrevocable:
		return "irrevocable"
	case ReasonExplicit:
		return "explicit"
	default:
		return "other"
	}
}

// AbortError is returned by the manual-retry API (Load/Store/Commit) when a
// transaction has been rolled back and must be restarted by the caller.
// Callers driving the loop through Atomically/Run only get it back when
// Attr.NoRetry is set.
type AbortError struct {
	Reason Reason
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("stm: transaction aborted: %s", e.Reason)
}

// ErrTooManyCallbacks is returned by Register when a callback kind's table
// is already at Config.MaxCallbacks.
var ErrTooManyCallbacks = fmt.Errorf("stm: callback table full")

// ErrTooManySpecifics is returned by SetSpecific when key >= Config.MaxSpecifics.
var ErrTooManySpecifics = fmt.Errorf("stm: specific slot out of range")

// ErrAlreadyInitialized is not returned by Init: a second Init call
// replaces the default engine instead of failing.
var ErrAlreadyInitialized = fmt.Errorf("stm: engine already initialized")
