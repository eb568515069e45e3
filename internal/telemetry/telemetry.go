// Package telemetry wraps github.com/rs/zerolog for the engine's cold-path
// lifecycle events. Nothing on the Load/Store/Commit hot path touches this
// package; every call site guards with Sink.Enabled() first.
package telemetry

import (
	"io"

	"github.com/rs/zerolog"
)

// Sink is a disabled-by-default structured event emitter. The zero value
// is safe and inert.
type Sink struct {
	log     zerolog.Logger
	enabled bool
}

// New builds an enabled Sink writing JSON lines to w at the given level.
func New(w io.Writer, level zerolog.Level) Sink {
	return Sink{
		log:     zerolog.New(w).Level(level).With().Timestamp().Logger(),
		enabled: true,
	}
}

// Disabled returns the inert zero-value Sink explicitly, for readability at
// call sites that build a Config by hand.
func Disabled() Sink {
	return Sink{}
}

// Enabled reports whether this sink will actually emit events.
func (s Sink) Enabled() bool {
	return s.enabled
}

// EngineInit logs engine initialization parameters.
func (s Sink) EngineInit(tableLogSize int, variant string, maxThreads int) {
	if !s.enabled {
		return
	}
	s.log.Info().
		Int("table_log_size", tableLogSize).
		Str("variant", variant).
		Int("max_threads", maxThreads).
		Msg("stm: engine initialized")
}

// EngineExit logs engine teardown.
func (s Sink) EngineExit() {
	if !s.enabled {
		return
	}
	s.log.Info().Msg("stm: engine exited")
}

// ThreadAttached logs a thread registering for quiescence.
func (s Sink) ThreadAttached(threadID uint64) {
	if !s.enabled {
		return
	}
	s.log.Debug().Uint64("thread_id", threadID).Msg("stm: thread attached")
}

// ThreadDetached logs a thread unregistering.
func (s Sink) ThreadDetached(threadID uint64) {
	if !s.enabled {
		return
	}
	s.log.Debug().Uint64("thread_id", threadID).Msg("stm: thread detached")
}

// QuiesceEnter logs the start of a stop-the-world barrier.
func (s Sink) QuiesceEnter(reason string) {
	if !s.enabled {
		return
	}
	s.log.Info().Str("reason", reason).Msg("stm: quiescence barrier entered")
}

// QuiesceExit logs the end of a stop-the-world barrier.
func (s Sink) QuiesceExit() {
	if !s.enabled {
		return
	}
	s.log.Info().Msg("stm: quiescence barrier released")
}

// Rollover logs a clock/lock-table rollover performed under quiescence.
func (s Sink) Rollover(previousClock uint64) {
	if !s.enabled {
		return
	}
	s.log.Warn().Uint64("previous_clock", previousClock).Msg("stm: version clock rolled over")
}

// AbortDebug logs an aborted transaction's reason at debug level.
func (s Sink) AbortDebug(txnID uint64, reason string) {
	if !s.enabled {
		return
	}
	s.log.Debug().Uint64("txn_id", txnID).Str("reason", reason).Msg("stm: transaction aborted")
}
