package lifecycle

import (
	"errors"
	"testing"
	"time"
)

func newBoundTracker(r StatusReporter) *StatusTracker {
	t := newStatusTracker(DefaultWaitHint, nil)
	t.bind(r)
	return t
}

func TestTracker_CheckpointRules(t *testing.T) {
	rep := &fakeReporter{}
	tr := newBoundTracker(rep)

	tr.begin()
	if got := tr.Snapshot(); got.State != StateStartPending || got.Checkpoint != 0 {
		t.Fatalf("after begin: %+v", got)
	}

	tr.Checkpoint()
	tr.Checkpoint()
	if got := tr.Snapshot().Checkpoint; got != 2 {
		t.Errorf("checkpoint = %d, want 2", got)
	}

	// Entering a stable state resets the counter.
	tr.Transition(StateRunning, AcceptStop)
	if got := tr.Snapshot(); got.State != StateRunning || got.Checkpoint != 0 {
		t.Errorf("after running: %+v", got)
	}

	// Checkpoint is a no-op in a stable state.
	before := rep.count()
	tr.Checkpoint()
	if got := tr.Snapshot().Checkpoint; got != 0 {
		t.Errorf("checkpoint advanced while running: %d", got)
	}
	if rep.count() != before {
		t.Error("checkpoint reported while running")
	}

	// Entering a pending state increments.
	tr.Transition(StateStopPending, 0)
	if got := tr.Snapshot().Checkpoint; got != 1 {
		t.Errorf("stop-pending checkpoint = %d, want 1", got)
	}

	tr.Finish(0)
	if got := tr.Snapshot(); got.State != StateStopped || got.Checkpoint != 0 {
		t.Errorf("after finish: %+v", got)
	}
}

func TestTracker_ForwardOnly(t *testing.T) {
	rep := &fakeReporter{}
	tr := newBoundTracker(rep)
	tr.begin()
	tr.Transition(StateRunning, AcceptStop|AcceptPauseContinue)
	tr.Transition(StateStopPending, 0)

	before := rep.count()
	tr.Transition(StateRunning, AcceptStop)
	tr.Transition(StatePausePending, AcceptPauseContinue)
	if got := tr.Snapshot().State; got != StateStopPending {
		t.Fatalf("left the stop branch: %v", got)
	}
	if rep.count() != before {
		t.Error("refused transitions still reported")
	}

	tr.Finish(0)
	tr.Transition(StateRunning, AcceptStop)
	if got := tr.Snapshot().State; got != StateStopped {
		t.Fatalf("left stopped: %v", got)
	}
}

func TestTracker_SameStateTransitionIsNoop(t *testing.T) {
	rep := &fakeReporter{}
	tr := newBoundTracker(rep)
	tr.begin()
	tr.Transition(StateRunning, AcceptStop)

	before := rep.count()
	tr.Transition(StateRunning, AcceptStop)
	if rep.count() != before {
		t.Error("same-state transition reported")
	}
}

func TestTracker_RequestAcceptGating(t *testing.T) {
	rep := &fakeReporter{}
	tr := newBoundTracker(rep)
	tr.begin()

	// Nothing accepted while start-pending.
	if tr.requestStop() {
		t.Error("stop accepted while start-pending")
	}
	if tr.requestPause() {
		t.Error("pause accepted while start-pending")
	}

	tr.Transition(StateRunning, AcceptStop)
	if tr.requestPause() {
		t.Error("pause accepted without the pause-continue bit")
	}
	if tr.requestContinue() {
		t.Error("continue accepted while running")
	}
	if !tr.requestStop() {
		t.Error("stop refused while running")
	}
	if got := tr.Snapshot().State; got != StateStopPending {
		t.Fatalf("state = %v after accepted stop", got)
	}
	if tr.requestStop() {
		t.Error("second stop accepted")
	}
}

func TestTracker_PauseContinueRoundTrip(t *testing.T) {
	rep := &fakeReporter{}
	tr := newBoundTracker(rep)
	tr.begin()
	tr.Transition(StateRunning, AcceptStop|AcceptPauseContinue)

	if !tr.requestPause() {
		t.Fatal("pause refused")
	}
	snap := tr.Snapshot()
	if snap.State != StatePausePending || snap.Checkpoint != 1 {
		t.Fatalf("after pause request: %+v", snap)
	}
	if snap.Accepts&AcceptPauseContinue == 0 {
		t.Fatal("pause request dropped the pause-continue bit")
	}

	tr.Transition(StatePaused, snap.Accepts)
	if got := tr.Snapshot().Checkpoint; got != 0 {
		t.Errorf("paused checkpoint = %d, want 0", got)
	}

	if !tr.requestContinue() {
		t.Fatal("continue refused")
	}
	if got := tr.Snapshot().State; got != StateRunning {
		t.Fatalf("after continue: %v", got)
	}
}

func TestTracker_ReportFailureEscalation(t *testing.T) {
	rep := &fakeReporter{fail: func(Status) error { return errors.New("pipe broken") }}
	tr := newBoundTracker(rep)

	tr.begin()
	tr.Checkpoint()
	if got := tr.Snapshot().State; got != StateStartPending {
		t.Fatalf("forced shutdown too early: %v", got)
	}
	tr.Checkpoint()
	if got := tr.Snapshot().State; got != StateStopPending {
		t.Fatalf("expected forced stop-pending after %d failures, got %v", maxReportFailures, got)
	}
}

func TestTracker_ReportFailureCounterResets(t *testing.T) {
	var failing bool
	rep := &fakeReporter{fail: func(Status) error {
		if failing {
			return errors.New("pipe broken")
		}
		return nil
	}}
	tr := newBoundTracker(rep)

	failing = true
	tr.begin()
	tr.Checkpoint()

	// One success wipes the streak.
	failing = false
	tr.Checkpoint()

	failing = true
	tr.Checkpoint()
	tr.Checkpoint()
	if got := tr.Snapshot().State; got != StateStartPending {
		t.Fatalf("escalated on a non-consecutive streak: %v", got)
	}
}

func TestTracker_HookSeesEveryTransition(t *testing.T) {
	var seen []State
	tr := newStatusTracker(DefaultWaitHint, func(st Status) { seen = append(seen, st.State) })
	tr.bind(&fakeReporter{})

	tr.begin()
	tr.Transition(StateRunning, AcceptStop)
	tr.Reaffirm() // not a mutation, not published
	tr.Transition(StateStopPending, 0)
	tr.Finish(3)

	want := []State{StateStartPending, StateRunning, StateStopPending, StateStopped}
	if len(seen) != len(want) {
		t.Fatalf("hook saw %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("hook saw %v, want %v", seen, want)
		}
	}
}

func TestTracker_WakeSignaledOnMutation(t *testing.T) {
	tr := newBoundTracker(&fakeReporter{})
	tr.begin()

	select {
	case <-tr.Wake():
	default:
		t.Fatal("begin did not signal the wake channel")
	}

	tr.Transition(StateRunning, AcceptStop)
	select {
	case <-tr.Wake():
	default:
		t.Fatal("transition did not signal the wake channel")
	}

	// Reaffirm is not a mutation.
	tr.Reaffirm()
	select {
	case <-tr.Wake():
		t.Fatal("reaffirm signaled the wake channel")
	default:
	}
}

func TestSink_ControlMapping(t *testing.T) {
	rep := &fakeReporter{}
	tr := newBoundTracker(rep)
	s := newSink(tr)

	tr.begin()
	tr.Transition(StateRunning, AcceptStop|AcceptPauseContinue|AcceptShutdown)

	before := rep.count()
	s.Handle(ControlInterrogate)
	if rep.count() != before+1 {
		t.Error("interrogate did not re-report")
	}
	if got := tr.Snapshot().State; got != StateRunning {
		t.Errorf("interrogate changed state to %v", got)
	}

	s.Handle(ControlPause)
	if got := tr.Snapshot().State; got != StatePausePending {
		t.Errorf("pause -> %v", got)
	}

	s.Handle(ControlContinue)
	if got := tr.Snapshot().State; got != StateRunning {
		t.Errorf("continue -> %v", got)
	}

	before = rep.count()
	s.Handle(ControlRequest(128))
	if rep.count() != before {
		t.Error("unknown control reported")
	}

	s.Handle(ControlShutdown)
	if got := tr.Snapshot().State; got != StateStopPending {
		t.Errorf("shutdown -> %v", got)
	}
}

func TestState_StringAndStable(t *testing.T) {
	cases := []struct {
		state  State
		name   string
		stable bool
	}{
		{StateStartPending, "start-pending", false},
		{StateRunning, "running", true},
		{StateStopPending, "stop-pending", false},
		{StateStopped, "stopped", true},
		{StatePausePending, "pause-pending", false},
		{StatePaused, "paused", true},
		{State(0), "unknown", false},
	}
	for _, c := range cases {
		if got := c.state.String(); got != c.name {
			t.Errorf("State(%d).String() = %q, want %q", c.state, got, c.name)
		}
		if got := c.state.Stable(); got != c.stable {
			t.Errorf("State(%d).Stable() = %v, want %v", c.state, got, c.stable)
		}
	}
}

func TestWorkloadError(t *testing.T) {
	inner := errors.New("disk full")
	we := &WorkloadError{Code: 5, Err: inner}
	if !errors.Is(we, inner) {
		t.Error("Unwrap lost the inner error")
	}
	if we.Error() == "" {
		t.Error("empty error string")
	}

	wrapped := asWorkloadError(inner)
	if wrapped.Code != 1 {
		t.Errorf("generic error code = %d, want 1", wrapped.Code)
	}
	if got := asWorkloadError(we); got != we {
		t.Error("asWorkloadError re-wrapped a WorkloadError")
	}
}

func TestCheckpointCadence(t *testing.T) {
	if got := checkpointCadence(10 * time.Second); got != 5*time.Second {
		t.Errorf("cadence = %v", got)
	}
	if got := checkpointCadence(0); got != time.Millisecond {
		t.Errorf("zero wait hint cadence = %v", got)
	}
}
