//go:build windows
// +build windows

package service

import (
	"os"
	"syscall"

	"svcrunner/internal/lifecycle"
)

// Interactive Windows runs only see console interrupt events; the richer
// control set arrives through the service control manager instead.
var watchedSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
}

func controlFromSignal(sig os.Signal) (lifecycle.ControlRequest, bool) {
	switch sig {
	case os.Interrupt, syscall.SIGTERM:
		return lifecycle.ControlStop, true
	}
	return 0, false
}
