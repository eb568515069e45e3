package stm

import "github.com/stmcore/wstm/internal/telemetry"

// Variant selects the write-buffering strategy a transaction uses. The
// acquire, validate and commit algorithms in commit.go and store.go branch
// on it; it is meant to be fixed for the lifetime of an Engine.
type Variant int

const (
	// VariantCTL buffers writes and acquires stripes in a batch at commit
	// time. This is the default.
	VariantCTL Variant = iota
	// VariantETL acquires a stripe the moment a transaction writes to it.
	VariantETL
	// VariantWriteThrough acquires a stripe on first write and publishes
	// the new value immediately, saving the old value for rollback.
	VariantWriteThrough
)

func (v Variant) String() string {
	switch v {
	case VariantCTL:
		return "ctl"
	case VariantETL:
		return "etl"
	case VariantWriteThrough:
		return "write-through"
	default:
		return "unknown"
	}
}

// Config bundles the engine's configuration parameters. It is consumed
// once by Init/NewEngine; the engine does not support changing it
// afterward.
type Config struct {
	// TableLogSize is log2 of the ownership table's slot count. Default 20.
	TableLogSize int
	// StripeExtraShift adds to log2(word size) to compute the address
	// shift used by the ownership table's hash. Default 2 (32-byte stripes
	// on a 64-bit machine word).
	StripeExtraShift int
	// InitialLogSize presizes a transaction's read/write set slices.
	InitialLogSize int
	// Variant selects CTL (default), ETL, or write-through.
	Variant Variant
	// MaxSpecifics bounds the per-transaction opaque slot array.
	MaxSpecifics int
	// MaxCallbacks bounds how many callbacks may be registered per kind.
	MaxCallbacks int
	// MaxThreads is subtracted from the clock's theoretical maximum to
	// compute VersionMax. InitThread does not check the number of live
	// threads against it.
	MaxThreads int
	// VersionCeiling, when nonzero, is used directly as VersionMax instead
	// of deriving it from MaxThreads. With the default MaxThreads this
	// ceiling sits near 2^63 and is never reached in practice; tests and
	// demos that want to exercise rollover without running the clock
	// through its full range set this directly instead.
	VersionCeiling uint64
	// MemoryWords sizes the Engine's own addressable word arena, used by
	// NewVar. Load/Store/StoreMasked always resolve addresses in this
	// arena; a Memory built with NewMemory is not attached to any Engine.
	MemoryWords int
	// EnableWriteBloom turns on a 32-bit Bloom filter over the write set's
	// addresses, used to short-circuit "have I already written this
	// address" checks once the write set grows large.
	EnableWriteBloom bool
	// ScrambleAddresses applies a bit-permutation to the ownership table
	// index to reduce collisions between neighboring addresses.
	ScrambleAddresses bool
	// Telemetry receives cold-path engine lifecycle events (init/exit,
	// thread attach/detach, quiescence, rollover, abort reasons at debug
	// level). The zero value is a disabled sink and costs one bool check
	// per call site.
	Telemetry telemetry.Sink
}

// DefaultConfig returns the engine's parameter defaults.
func DefaultConfig() Config {
	return Config{
		TableLogSize:      20,
		StripeExtraShift:  2,
		InitialLogSize:    64,
		Variant:           VariantCTL,
		MaxSpecifics:      16,
		MaxCallbacks:      16,
		MaxThreads:        1 << 16,
		MemoryWords:       1 << 16,
		EnableWriteBloom:  false,
		ScrambleAddresses: false,
		Telemetry:         telemetry.Disabled(),
	}
}

// Attr holds the per-transaction attributes: read_only, no_retry, and an
// opaque caller-reserved ID. Unknown/zero fields are ignored.
type Attr struct {
	ReadOnly bool
	NoRetry  bool
	// ID optionally names the region, used only for telemetry.
	ID string
}
