package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeReporter records every status report, standing in for the OS manager's
// report surface.
type fakeReporter struct {
	mu      sync.Mutex
	reports []Status
	fail    func(Status) error
}

func (r *fakeReporter) Report(st Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		if err := r.fail(st); err != nil {
			return err
		}
	}
	r.reports = append(r.reports, st)
	return nil
}

func (r *fakeReporter) snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.reports))
	copy(out, r.reports)
	return out
}

func (r *fakeReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

// lastState returns the most recently reported state, or zero.
func (r *fakeReporter) lastState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reports) == 0 {
		return 0
	}
	return r.reports[len(r.reports)-1].State
}

// fakeManager hands out the fake reporter and exposes the registered handler
// so tests can deliver controls from their own goroutine, unsynchronized
// against the loop, exactly like the real manager.
type fakeManager struct {
	reporter    *fakeReporter
	registerErr error

	mu      sync.Mutex
	handler Handler
}

func newFakeManager() *fakeManager {
	return &fakeManager{reporter: &fakeReporter{}}
}

func (m *fakeManager) Register(name string, h Handler) (StatusReporter, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
	return m.reporter, nil
}

func (m *fakeManager) control(req ControlRequest) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h.Handle(req)
	}
}

// fakeWorkload is a scriptable workload.
type fakeWorkload struct {
	startDelay   time.Duration
	startErr     error
	tickErrAt    int
	tickErr      error
	shutdownCode uint32

	mu        sync.Mutex
	ticks     int
	shutdowns int
}

func (w *fakeWorkload) OnStart(ctx context.Context) error {
	if w.startDelay > 0 {
		select {
		case <-time.After(w.startDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return w.startErr
}

func (w *fakeWorkload) OnTick(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ticks++
	if w.tickErrAt > 0 && w.ticks == w.tickErrAt {
		return w.tickErr
	}
	return nil
}

func (w *fakeWorkload) OnShutdown(ctx context.Context) uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shutdowns++
	return w.shutdownCode
}

func (w *fakeWorkload) tickCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ticks
}

func (w *fakeWorkload) shutdownCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shutdowns
}

// pausableWorkload additionally implements Pauser.
type pausableWorkload struct {
	fakeWorkload

	pmu       sync.Mutex
	pauses    int
	continues int
}

func (w *pausableWorkload) OnPause() error {
	w.pmu.Lock()
	defer w.pmu.Unlock()
	w.pauses++
	return nil
}

func (w *pausableWorkload) OnContinue() error {
	w.pmu.Lock()
	defer w.pmu.Unlock()
	w.continues++
	return nil
}

func (w *pausableWorkload) pauseCount() int {
	w.pmu.Lock()
	defer w.pmu.Unlock()
	return w.pauses
}

// waitFor polls cond until it holds or the test deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// runLoop starts the loop on its own goroutine and returns the result
// channel.
func runLoop(ctx context.Context, l *Loop, m Manager) <-chan error {
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, m) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not return in time")
		return nil
	}
}
