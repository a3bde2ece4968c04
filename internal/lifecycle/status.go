// Package lifecycle implements the service lifecycle controller: the shared
// status record, the control handler invoked by the OS service manager, and
// the supervised run loop that drives a workload until told to stop.
package lifecycle

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"svcrunner/internal/logger"
)

// State is the lifecycle state reported to the service manager.
type State uint32

const (
	StateStartPending State = iota + 1
	StateRunning
	StateStopPending
	StateStopped
	StatePausePending
	StatePaused
)

// String returns the manager-facing name of the state.
func (s State) String() string {
	switch s {
	case StateStartPending:
		return "start-pending"
	case StateRunning:
		return "running"
	case StateStopPending:
		return "stop-pending"
	case StateStopped:
		return "stopped"
	case StatePausePending:
		return "pause-pending"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Stable reports whether the state is a resting state. The checkpoint counter
// resets to zero on entering a stable state and increments on every report
// made in a pending state.
func (s State) Stable() bool {
	return s == StateRunning || s == StateStopped || s == StatePaused
}

// Accepted is a bitmask of control classes the service currently accepts.
type Accepted uint32

const (
	AcceptStop Accepted = 1 << iota
	AcceptPauseContinue
	AcceptShutdown
)

// Status is the full record delivered to the service manager. Every mutation
// of the record is followed by exactly one report before any other mutation.
type Status struct {
	State      State
	Accepts    Accepted
	ExitCode   uint32
	Checkpoint uint32
	WaitHint   time.Duration
}

// maxReportFailures is the number of consecutive failed status reports
// tolerated before the tracker forces a shutdown. Leaving the manager with a
// stale Running status is worse than stopping early.
const maxReportFailures = 3

// StatusTracker owns the shared status record. The control handler and the
// run loop execute on different goroutines with no ordering between them, so
// every read-modify-report sequence holds the mutex. The manager never
// observes a half-applied transition.
type StatusTracker struct {
	mu       sync.Mutex
	status   Status
	reporter StatusReporter
	failures int
	hook     func(Status)
	wake     chan struct{}
	log      zerolog.Logger
}

func newStatusTracker(waitHint time.Duration, hook func(Status)) *StatusTracker {
	return &StatusTracker{
		status: Status{State: StateStartPending, WaitHint: waitHint},
		hook:   hook,
		wake:   make(chan struct{}, 1),
		log:    logger.WithComponent("status"),
	}
}

// bind attaches the reporter obtained from registration. Must be called
// before the first report; registration precedes all status traffic.
func (t *StatusTracker) bind(r StatusReporter) {
	t.mu.Lock()
	t.reporter = r
	t.mu.Unlock()
}

// Snapshot returns a copy of the current status record.
func (t *StatusTracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Wake returns the channel signaled whenever the control handler mutates the
// record. The run loop selects on it so shutdown latency is bounded by the
// handler, not by the tick interval.
func (t *StatusTracker) Wake() <-chan struct{} {
	return t.wake
}

// begin reports the initial StartPending record (checkpoint zero).
func (t *StatusTracker) begin() {
	t.mu.Lock()
	snap := t.reportLocked()
	t.mu.Unlock()
	t.notify(snap)
}

// Transition moves the record to a new state and reports it. Entering a
// pending state increments the checkpoint; entering a stable state resets it.
// Transitions are forward-only: once a stop-class state has been set, no
// transition may reintroduce Running or the pause branch.
func (t *StatusTracker) Transition(state State, accepts Accepted) {
	t.mu.Lock()
	if !t.transitionLocked(state, accepts) {
		t.mu.Unlock()
		return
	}
	snap := t.reportLocked()
	t.mu.Unlock()
	t.notify(snap)
}

// Finish reports the terminal Stopped record with the given exit code.
func (t *StatusTracker) Finish(exitCode uint32) {
	t.mu.Lock()
	t.status.State = StateStopped
	t.status.Accepts = 0
	t.status.Checkpoint = 0
	t.status.ExitCode = exitCode
	snap := t.reportLocked()
	t.mu.Unlock()
	t.notify(snap)
}

// Checkpoint increments the progress counter and re-reports. Only meaningful
// in a pending state; a no-op otherwise.
func (t *StatusTracker) Checkpoint() {
	t.mu.Lock()
	if t.status.State.Stable() {
		t.mu.Unlock()
		return
	}
	t.status.Checkpoint++
	t.reportLocked()
	t.mu.Unlock()
}

// Reaffirm re-reports the current record unchanged. Used for the manager's
// interrogate probe; not a mutation, so no wake signal and no hook.
func (t *StatusTracker) Reaffirm() {
	t.mu.Lock()
	t.reportLocked()
	t.mu.Unlock()
}

// requestStop is the compare-and-swap behind Stop and Shutdown controls: the
// accept check and the transition happen under one lock so a racing loop
// transition cannot be lost.
func (t *StatusTracker) requestStop() bool {
	t.mu.Lock()
	if t.status.Accepts&AcceptStop == 0 || !t.transitionLocked(StateStopPending, 0) {
		t.mu.Unlock()
		return false
	}
	snap := t.reportLocked()
	t.mu.Unlock()
	t.notify(snap)
	return true
}

// requestPause moves Running to PausePending, keeping the accepted controls
// so the matching Continue is still honored.
func (t *StatusTracker) requestPause() bool {
	t.mu.Lock()
	if t.status.Accepts&AcceptPauseContinue == 0 || t.status.State != StateRunning {
		t.mu.Unlock()
		return false
	}
	accepts := t.status.Accepts
	if !t.transitionLocked(StatePausePending, accepts) {
		t.mu.Unlock()
		return false
	}
	snap := t.reportLocked()
	t.mu.Unlock()
	t.notify(snap)
	return true
}

// requestContinue resumes a paused service. The status enum has no
// continue-pending state; resume cost is negligible in-process, so the
// record goes straight back to Running and the loop restarts ticking.
func (t *StatusTracker) requestContinue() bool {
	t.mu.Lock()
	if t.status.Accepts&AcceptPauseContinue == 0 ||
		(t.status.State != StatePaused && t.status.State != StatePausePending) {
		t.mu.Unlock()
		return false
	}
	accepts := t.status.Accepts
	if !t.transitionLocked(StateRunning, accepts) {
		t.mu.Unlock()
		return false
	}
	snap := t.reportLocked()
	t.mu.Unlock()
	t.notify(snap)
	return true
}

func (t *StatusTracker) transitionLocked(state State, accepts Accepted) bool {
	cur := t.status.State
	if cur == state {
		return false
	}
	// Forward-only: never leave the stop branch.
	if cur == StateStopped {
		return false
	}
	if cur == StateStopPending && state != StateStopped {
		return false
	}
	if state.Stable() {
		t.status.Checkpoint = 0
	} else {
		t.status.Checkpoint++
	}
	t.status.State = state
	t.status.Accepts = accepts
	return true
}

// reportLocked delivers the current record to the manager. Report failures
// are recoverable: they are logged and retried on the next transition. Past
// a bounded number of consecutive failures the tracker forces StopPending so
// the manager is not left with a stale status.
func (t *StatusTracker) reportLocked() Status {
	snap := t.status
	if t.reporter == nil {
		return snap
	}
	if err := t.reporter.Report(snap); err != nil {
		t.failures++
		t.log.Warn().
			Err(err).
			Str("state", snap.State.String()).
			Int("consecutive_failures", t.failures).
			Msg("Status report failed")
		if t.failures >= maxReportFailures && snap.State != StateStopPending && snap.State != StateStopped {
			t.log.Error().Msg("Too many failed status reports, forcing shutdown")
			t.transitionLocked(StateStopPending, 0)
			snap = t.status
		}
		return snap
	}
	t.failures = 0
	return snap
}

// notify signals the run loop and invokes the transition hook outside the
// lock. The hook must not block; publish failures are the publisher's
// problem, never the transition's.
func (t *StatusTracker) notify(snap Status) {
	select {
	case t.wake <- struct{}{}:
	default:
	}
	if t.hook != nil {
		t.hook(snap)
	}
}
