package lifecycle

import (
	"context"
	"fmt"
)

// Workload is the collaborator the run loop supervises. What it computes is
// its own business; the loop only enforces the contract under which it runs.
type Workload interface {
	// OnStart performs startup work. The loop reports start-pending
	// checkpoints to the manager while it runs. ctx is canceled if the
	// process is told to shut down before startup completes.
	OnStart(ctx context.Context) error

	// OnTick performs one unit of work. A non-nil error stops the service:
	// the loop transitions to stop-pending and shuts the workload down with
	// a non-zero exit code.
	OnTick(ctx context.Context) error

	// OnShutdown tears the workload down and returns the process exit code.
	// ctx carries the wait-hint deadline promised to the manager.
	OnShutdown(ctx context.Context) uint32
}

// Pauser is implemented by workloads that support the manager's pause and
// continue controls. The loop advertises pause support only when the
// workload does.
type Pauser interface {
	OnPause() error
	OnContinue() error
}

// WorkloadError carries the exit code a failing workload wants reported in
// the final Stopped status. Tick errors that are not WorkloadErrors stop the
// service with exit code 1.
type WorkloadError struct {
	Code uint32
	Err  error
}

func (e *WorkloadError) Error() string {
	return fmt.Sprintf("workload failed (exit code %d): %v", e.Code, e.Err)
}

func (e *WorkloadError) Unwrap() error { return e.Err }
