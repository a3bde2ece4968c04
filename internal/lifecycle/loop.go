package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"svcrunner/internal/logger"
)

const (
	// DefaultTickInterval is the liveness fallback between workload ticks.
	DefaultTickInterval = 1 * time.Second

	// DefaultWaitHint is the upper bound promised to the manager before the
	// next checkpoint during a pending transition, and the budget given to
	// workload shutdown.
	DefaultWaitHint = 5 * time.Second
)

// Loop supervises a workload under the service manager contract: it
// registers the control handler, walks the status record through its
// transitions, invokes the workload each tick and yields when told to stop.
type Loop struct {
	name     string
	workload Workload
	clk      clock.Clock
	tick     time.Duration
	waitHint time.Duration
	hook     func(Status)
	log      zerolog.Logger

	mu       sync.Mutex
	status   *StatusTracker
	exitCode uint32
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock substitutes the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(l *Loop) { l.clk = c }
}

// WithTickInterval sets the maximum period between workload ticks.
func WithTickInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.tick = d
		}
	}
}

// WithWaitHint sets the checkpoint cadence promised to the manager and the
// workload shutdown budget.
func WithWaitHint(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.waitHint = d
		}
	}
}

// WithTransitionHook installs a callback invoked after every reported state
// transition. The hook must not block.
func WithTransitionHook(fn func(Status)) Option {
	return func(l *Loop) { l.hook = fn }
}

// New creates a loop supervising the given workload.
func New(name string, w Workload, opts ...Option) *Loop {
	l := &Loop{
		name:     name,
		workload: w,
		clk:      clock.New(),
		tick:     DefaultTickInterval,
		waitHint: DefaultWaitHint,
		log:      logger.WithComponent("lifecycle"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the service name the loop registers under.
func (l *Loop) Name() string { return l.name }

// Status returns the latest reported status record. Zero before Run has
// registered with a manager.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == nil {
		return Status{}
	}
	return l.status.Snapshot()
}

// ExitCode returns the code reported in the final Stopped status.
func (l *Loop) ExitCode() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exitCode
}

// Run executes one service lifetime against the given manager. It blocks
// until the workload has shut down and the final Stopped status has been
// reported. A workload failure is returned after the Stopped report, never
// instead of it.
func (l *Loop) Run(ctx context.Context, m Manager) error {
	tracker := newStatusTracker(l.waitHint, l.hook)
	reporter, err := m.Register(l.name, newSink(tracker))
	if err != nil {
		// Fatal: report nothing further.
		return fmt.Errorf("%w: %v", ErrRegistration, err)
	}
	tracker.bind(reporter)

	l.mu.Lock()
	l.status = tracker
	l.exitCode = 0
	l.mu.Unlock()

	tracker.begin()
	l.log.Info().Str("service", l.name).Msg("Service starting")

	var failure *WorkloadError

	if err := l.startup(ctx, tracker); err != nil {
		if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
			failure = asWorkloadError(err)
			l.log.Error().Err(err).Msg("Workload startup failed")
		}
		tracker.Transition(StateStopPending, 0)
	} else {
		accepts := AcceptStop | AcceptShutdown
		if _, ok := l.workload.(Pauser); ok {
			accepts |= AcceptPauseContinue
		}
		tracker.Transition(StateRunning, accepts)
		l.log.Info().Str("service", l.name).Msg("Service running")

		failure = l.supervise(ctx, tracker)
	}

	code := l.shutdown(tracker, failure)

	l.mu.Lock()
	l.exitCode = code
	l.mu.Unlock()

	if failure != nil {
		return failure
	}
	return nil
}

// startup runs workload startup while reporting start-pending checkpoints on
// the wait-hint cadence so the manager does not time the service out.
func (l *Loop) startup(ctx context.Context, tracker *StatusTracker) error {
	startCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.workload.OnStart(startCtx) }()

	progress := l.clk.Ticker(checkpointCadence(l.waitHint))
	defer progress.Stop()

	for {
		select {
		case err := <-done:
			return err
		case <-progress.C:
			tracker.Checkpoint()
		case <-ctx.Done():
			cancel()
			return <-done
		}
	}
}

// supervise is the running phase: a bounded wait woken early by control
// handler activity, one workload tick per elapsed interval while running.
// Returns a failure if a tick stopped the service, nil if the manager did.
func (l *Loop) supervise(ctx context.Context, tracker *StatusTracker) *WorkloadError {
	ticker := l.clk.Ticker(l.tick)
	defer ticker.Stop()

	paused := false
	for {
		due := false
		select {
		case <-ctx.Done():
			l.log.Info().Msg("Run context canceled, stopping service")
			tracker.Transition(StateStopPending, 0)
		case <-tracker.Wake():
		case <-ticker.C:
			due = true
		}

		snap := tracker.Snapshot()
		switch snap.State {
		case StateStopPending, StateStopped:
			return nil

		case StatePausePending:
			paused = l.pause(tracker, snap, paused)

		case StateRunning:
			if paused {
				paused = l.resume()
			}
			if !due {
				continue
			}
			if err := l.workload.OnTick(ctx); err != nil {
				l.log.Error().Err(err).Msg("Workload tick failed, stopping service")
				tracker.Transition(StateStopPending, 0)
				return asWorkloadError(err)
			}

		case StatePaused:
			// Nothing to do until the next control arrives.
		}
	}
}

func (l *Loop) pause(tracker *StatusTracker, snap Status, paused bool) bool {
	if p, ok := l.workload.(Pauser); ok && !paused {
		if err := p.OnPause(); err != nil {
			l.log.Warn().Err(err).Msg("Workload refused to pause, resuming")
			tracker.Transition(StateRunning, snap.Accepts)
			return false
		}
	}
	tracker.Transition(StatePaused, snap.Accepts)
	l.log.Info().Msg("Service paused")
	return true
}

func (l *Loop) resume() bool {
	if p, ok := l.workload.(Pauser); ok {
		if err := p.OnContinue(); err != nil {
			l.log.Warn().Err(err).Msg("Workload continue returned error")
		}
	}
	l.log.Info().Msg("Service resumed")
	return false
}

// shutdown drives stop-pending to stopped. Workload teardown is bounded by
// the wait hint and checkpoints are reported while it runs, so the manager
// sees progress instead of a stall.
func (l *Loop) shutdown(tracker *StatusTracker, failure *WorkloadError) uint32 {
	shutCtx, cancel := context.WithTimeout(context.Background(), l.waitHint)
	defer cancel()

	done := make(chan uint32, 1)
	go func() { done <- l.workload.OnShutdown(shutCtx) }()

	progress := l.clk.Ticker(checkpointCadence(l.waitHint))
	defer progress.Stop()

	var code uint32
wait:
	for {
		select {
		case code = <-done:
			break wait
		case <-progress.C:
			tracker.Checkpoint()
		case <-shutCtx.Done():
			l.log.Warn().Dur("wait_hint", l.waitHint).Msg("Workload shutdown exceeded wait hint")
			break wait
		}
	}

	if failure != nil && failure.Code != 0 {
		code = failure.Code
	}
	tracker.Finish(code)
	l.log.Info().Uint32("exit_code", code).Msg("Service stopped")
	return code
}

// checkpointCadence keeps checkpoint reports comfortably inside the wait
// hint promised to the manager.
func checkpointCadence(waitHint time.Duration) time.Duration {
	if c := waitHint / 2; c > 0 {
		return c
	}
	return time.Millisecond
}

func asWorkloadError(err error) *WorkloadError {
	var we *WorkloadError
	if errors.As(err, &we) {
		return we
	}
	return &WorkloadError{Code: 1, Err: err}
}
