//go:build !windows
// +build !windows

package service

import (
	"os"
	"syscall"

	"svcrunner/internal/lifecycle"
)

var watchedSignals = []os.Signal{
	syscall.SIGTERM,
	syscall.SIGINT,
	syscall.SIGTSTP,
	syscall.SIGCONT,
	syscall.SIGUSR1,
}

// controlFromSignal maps a process signal to a control request. SIGTSTP and
// SIGCONT carry the pause branch; SIGUSR1 is the liveness probe.
func controlFromSignal(sig os.Signal) (lifecycle.ControlRequest, bool) {
	switch sig {
	case syscall.SIGTERM, syscall.SIGINT:
		return lifecycle.ControlStop, true
	case syscall.SIGTSTP:
		return lifecycle.ControlPause, true
	case syscall.SIGCONT:
		return lifecycle.ControlContinue, true
	case syscall.SIGUSR1:
		return lifecycle.ControlInterrogate, true
	}
	return 0, false
}
