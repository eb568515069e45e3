package stm

import (
	"sync"
	"sync/atomic"
)

// Engine bundles all of the process-wide STM state that a C-style runtime
// would otherwise keep in static variables: the version clock, the
// ownership table, the thread registry, and the callback tables. Rather
// than hidden globals, callers hold an explicit handle and pass it around;
// see Default() for a package-level convenience instance.
type Engine struct {
	cfg Config

	clock      Clock
	table      *Table
	memory     *Memory
	nextWord   atomic.Uint64
	versionMax uint64

	// mu/cond guard both the thread registry and the quiescence barrier --
	// a single process-wide mutex, held only for registry edits and
	// quiescence bookkeeping, never across a transaction's hot path.
	mu             sync.Mutex
	cond           *sync.Cond
	registryHead   *ThreadHandle
	liveThreads    int
	nextThreadID   atomic.Uint64
	quiesceFlag    bool
	quiesceWaiting int

	callbacksMu sync.RWMutex
	callbacks   [numCallbackKinds][]callback

	stats engineStats
}

// NewEngine constructs a standalone Engine. Unlike Init/Default, NewEngine
// does not touch the package-level default engine -- it is meant for tests
// and callers that want more than one independent engine in the same
// process.
func NewEngine(cfg Config) *Engine {
	if cfg.TableLogSize <= 0 {
		cfg.TableLogSize = DefaultConfig().TableLogSize
	}
	if cfg.InitialLogSize <= 0 {
		cfg.InitialLogSize = DefaultConfig().InitialLogSize
	}
	if cfg.MaxSpecifics <= 0 {
		cfg.MaxSpecifics = DefaultConfig().MaxSpecifics
	}
	if cfg.MaxSpecifics > maxSpecificsHardLimit {
		cfg.MaxSpecifics = maxSpecificsHardLimit
	}
	if cfg.MaxCallbacks <= 0 {
		cfg.MaxCallbacks = DefaultConfig().MaxCallbacks
	}
	if cfg.MaxThreads <= 0 {
		cfg.MaxThreads = DefaultConfig().MaxThreads
	}
	if cfg.MemoryWords <= 0 {
		cfg.MemoryWords = DefaultConfig().MemoryWords
	}

	vmax := cfg.VersionCeiling
	if vmax == 0 {
		vmax = versionMax(cfg.MaxThreads)
	}
	e := &Engine{
		cfg:        cfg,
		table:      newTable(cfg.TableLogSize, cfg.StripeExtraShift, cfg.ScrambleAddresses),
		memory:     NewMemory(cfg.MemoryWords),
		versionMax: vmax,
	}
	e.cond = sync.NewCond(&e.mu)

	if e.cfg.Telemetry.Enabled() {
		e.cfg.Telemetry.EngineInit(cfg.TableLogSize, cfg.Variant.String(), cfg.MaxThreads)
	}
	e.runCallbacks(onInit, nil)
	return e
}

// Exit tears down this engine. It does not release goroutine-held
// ThreadHandles; callers must ExitThread them first.
func (e *Engine) Exit() {
	e.runCallbacks(onExit, nil)
	if e.cfg.Telemetry.Enabled() {
		e.cfg.Telemetry.EngineExit()
	}
}

// GetClock returns the current global version clock value.
func (e *Engine) GetClock() uint64 {
	return e.clock.Read()
}

// allocWord bump-allocates one word from the engine's own Memory, backing
// NewVar. There is no realistic recovery from exhausting a finite-memory
// arena, so this panics rather than returning a half-usable Var.
func (e *Engine) allocWord() uint64 {
	idx := e.nextWord.Add(1) - 1
	if int(idx) >= e.memory.Len() {
		panic("stm: engine memory arena exhausted")
	}
	return e.memory.Addr(int(idx))
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
	defaultEngineMu   sync.Mutex
)

// Default returns the package-level convenience engine, constructing it
// with DefaultConfig on first use. Init replaces it with caller-supplied
// configuration.
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngineMu.Lock()
		defer defaultEngineMu.Unlock()
		if defaultEngine == nil {
			defaultEngine = NewEngine(DefaultConfig())
		}
	})
	return defaultEngine
}

// Init (re)configures the package-level default engine. It is not
// idempotent: every call builds a new engine and replaces the default one
// wholesale; callers wanting several independent engines in one process
// should use NewEngine directly.
func Init(cfg Config) *Engine {
	defaultEngineMu.Lock()
	defer defaultEngineMu.Unlock()
	defaultEngine = NewEngine(cfg)
	return defaultEngine
}

// Exit tears down the package-level default engine.
func Exit() {
	defaultEngineMu.Lock()
	e := defaultEngine
	defaultEngineMu.Unlock()
	if e != nil {
		e.Exit()
	}
}
