//go:build windows
// +build windows

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows/svc"

	"svcrunner/internal/lifecycle"
)

// IsManaged reports whether the process was started by the Windows service
// control manager.
func IsManaged() bool {
	managed, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return managed
}

// Dispatch hands the process to the service control manager and blocks until
// the framework reports the service finished. The Go binding runs own-process
// services, so exactly one entry is supported.
func Dispatch(ctx context.Context, entries ...Entry) error {
	if len(entries) != 1 {
		return fmt.Errorf("windows dispatcher supports exactly one entry, got %d", len(entries))
	}
	if !IsManaged() {
		return lifecycle.ErrNotManaged
	}

	e := entries[0]
	adapter := &scmAdapter{ctx: ctx, loop: e.Loop}
	if err := svc.Run(e.Name, adapter); err != nil {
		return fmt.Errorf("%w: %v", lifecycle.ErrNotManaged, err)
	}
	return adapter.err
}

// scmAdapter implements svc.Handler: Execute is the framework-invoked entry
// point for one service lifetime.
type scmAdapter struct {
	ctx  context.Context
	loop *lifecycle.Loop
	err  error
}

func (a *scmAdapter) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (svcSpecificEC bool, exitCode uint32) {
	mgr := newSCMManager(r, changes)
	defer mgr.stop()

	a.err = a.loop.Run(a.ctx, mgr)
	if a.err != nil {
		var we *lifecycle.WorkloadError
		if errors.As(a.err, &we) {
			return true, we.Code
		}
		return true, 1
	}
	return false, 0
}

// scmManager adapts the SCM's channel pair onto the Manager/StatusReporter
// interfaces.
type scmManager struct {
	r       <-chan svc.ChangeRequest
	changes chan<- svc.Status
	done    chan struct{}
}

func newSCMManager(r <-chan svc.ChangeRequest, changes chan<- svc.Status) *scmManager {
	return &scmManager{r: r, changes: changes, done: make(chan struct{})}
}

func (m *scmManager) Register(name string, h lifecycle.Handler) (lifecycle.StatusReporter, error) {
	go m.forward(h)
	return m, nil
}

// forward delivers change requests to the control handler until the loop
// has returned. This is the SCM's dispatch thread in Go clothing.
func (m *scmManager) forward(h lifecycle.Handler) {
	for {
		select {
		case <-m.done:
			return
		case c := <-m.r:
			h.Handle(controlFromCmd(c.Cmd))
		}
	}
}

func (m *scmManager) Report(st lifecycle.Status) error {
	select {
	case m.changes <- toSvcStatus(st):
		return nil
	case <-m.done:
		return fmt.Errorf("service control manager unavailable")
	}
}

func (m *scmManager) stop() {
	close(m.done)
}

// controlFromCmd maps SCM commands onto control requests. Unknown commands
// pass through numerically; the sink acknowledges them as no-ops.
func controlFromCmd(cmd svc.Cmd) lifecycle.ControlRequest {
	switch cmd {
	case svc.Stop:
		return lifecycle.ControlStop
	case svc.Pause:
		return lifecycle.ControlPause
	case svc.Continue:
		return lifecycle.ControlContinue
	case svc.Interrogate:
		return lifecycle.ControlInterrogate
	case svc.Shutdown:
		return lifecycle.ControlShutdown
	}
	return lifecycle.ControlRequest(cmd)
}

func toSvcStatus(st lifecycle.Status) svc.Status {
	out := svc.Status{
		State:      toSvcState(st.State),
		CheckPoint: st.Checkpoint,
		WaitHint:   uint32(st.WaitHint / time.Millisecond),
	}
	if st.Accepts&lifecycle.AcceptStop != 0 {
		out.Accepts |= svc.AcceptStop
	}
	if st.Accepts&lifecycle.AcceptShutdown != 0 {
		out.Accepts |= svc.AcceptShutdown
	}
	if st.Accepts&lifecycle.AcceptPauseContinue != 0 {
		out.Accepts |= svc.AcceptPauseAndContinue
	}
	return out
}

func toSvcState(s lifecycle.State) svc.State {
	switch s {
	case lifecycle.StateStartPending:
		return svc.StartPending
	case lifecycle.StateRunning:
		return svc.Running
	case lifecycle.StateStopPending:
		return svc.StopPending
	case lifecycle.StatePausePending:
		return svc.PausePending
	case lifecycle.StatePaused:
		return svc.Paused
	default:
		return svc.Stopped
	}
}
