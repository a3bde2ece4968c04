//go:build !windows
// +build !windows

package service

import (
	"context"
	"os"

	"svcrunner/internal/lifecycle"
)

// IsManaged reports whether the process is supervised by systemd. The
// invocation ID is set for every unit since systemd 232; the notify socket
// appears for Type=notify units.
func IsManaged() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("NOTIFY_SOCKET") != ""
}

// Dispatch runs the entries under the signal-driven manager, reporting
// readiness over the systemd notify socket. It blocks until every loop has
// returned and fails with ErrNotManaged when no manager context is present.
func Dispatch(ctx context.Context, entries ...Entry) error {
	if !IsManaged() {
		return lifecycle.ErrNotManaged
	}

	mgr := newSignalManager()
	defer mgr.stop()
	return runEntries(ctx, mgr, entries)
}
