package stm

import "sync/atomic"

// engineStats is the minimal counter set backing GetStats. A full
// statistics subsystem is out of scope; these counters are enough to
// observe commit/abort behavior without adding per-call overhead worth
// noting.
type engineStats struct {
	commits       atomic.Uint64
	aborts        atomic.Uint64
	wwConflicts   atomic.Uint64
	valFailures   atomic.Uint64
	rollovers     atomic.Uint64
}

// GetStats returns the named counter's value. Unknown names return 0, false.
func (e *Engine) GetStats(name string) (uint64, bool) {
	switch name {
	case "commits":
		return e.stats.commits.Load(), true
	case "aborts":
		return e.stats.aborts.Load(), true
	case "ww_conflicts":
		return e.stats.wwConflicts.Load(), true
	case "validation_failures":
		return e.stats.valFailures.Load(), true
	case "rollovers":
		return e.stats.rollovers.Load(), true
	default:
		return 0, false
	}
}

// GetParameter reflects a named Config field. Unknown names return nil,
// false.
func (e *Engine) GetParameter(name string) (any, bool) {
	switch name {
	case "table_log_size":
		return e.cfg.TableLogSize, true
	case "stripe_extra_shift":
		return e.cfg.StripeExtraShift, true
	case "initial_log_size":
		return e.cfg.InitialLogSize, true
	case "variant":
		return e.cfg.Variant.String(), true
	case "max_specifics":
		return e.cfg.MaxSpecifics, true
	case "max_callbacks":
		return e.cfg.MaxCallbacks, true
	case "max_threads":
		return e.cfg.MaxThreads, true
	case "version_max":
		return e.versionMax, true
	default:
		return nil, false
	}
}
