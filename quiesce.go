package stm

import "runtime"

// runQuiescent implements the stop-the-world barrier used for clock
// rollover. self may be nil when the caller is not itself a registered
// thread.
//
// Protocol:
//  1. set the quiesce flag.
//  2. every other thread, at the top of Txn.prepare, observes the flag,
//     goes IDLE, and parks on the condition variable.
//  3. once every other live thread has parked, run critical under the
//     barrier, then clear the flag and wake everyone.
func (e *Engine) runQuiescent(self *ThreadHandle, reason string, critical func()) {
	e.mu.Lock()
	e.quiesceFlag = true
	e.mu.Unlock()

	if e.cfg.Telemetry.Enabled() {
		e.cfg.Telemetry.QuiesceEnter(reason)
	}

	target := e.liveThreadCount()
	if self != nil {
		target--
	}
	if target < 0 {
		target = 0
	}

	for {
		e.mu.Lock()
		waiting := e.quiesceWaiting
		e.mu.Unlock()
		if waiting >= target {
			break
		}
		runtime.Gosched()
	}

	critical()

	e.mu.Lock()
	e.quiesceFlag = false
	e.quiesceWaiting = 0
	e.cond.Broadcast()
	e.mu.Unlock()

	if e.cfg.Telemetry.Enabled() {
		e.cfg.Telemetry.QuiesceExit()
	}
}

// awaitQuiesceClear is called at the top of every prepare. If a rollover
// barrier is in progress, tx goes IDLE and parks until the coordinator
// clears the flag.
func (e *Engine) awaitQuiesceClear(tx *Txn) {
	e.mu.Lock()
	if !e.quiesceFlag {
		e.mu.Unlock()
		return
	}
	prior := tx.getStatus()
	tx.setStatus(StatusIdle)
	e.quiesceWaiting++
	for e.quiesceFlag {
		e.cond.Wait()
	}
	e.quiesceWaiting--
	tx.setStatus(prior)
	e.mu.Unlock()
}

// maybeRollover triggers the quiescence-guarded clock/table reset once the
// clock has reached VersionMax. It is checked before stamping a commit
// timestamp and before extending a snapshot.
func (e *Engine) maybeRollover(self *ThreadHandle) {
	if e.clock.Read() < e.versionMax {
		return
	}
	e.runQuiescent(self, "clock-rollover", func() {
		prev := e.clock.Read()
		e.table.resetAll()
		e.clock.reset()
		e.stats.rollovers.Add(1)
		if e.cfg.Telemetry.Enabled() {
			e.cfg.Telemetry.Rollover(prev)
		}
	})
}
