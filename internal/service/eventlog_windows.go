//go:build windows
// +build windows

package service

import (
	"fmt"

	"golang.org/x/sys/windows/svc/eventlog"
)

// ReportStartupError writes a startup error to the Windows Event Log so
// "net start" and Event Viewer show the actual message even when the logger
// has not been initialized yet.
func ReportStartupError(serviceName string, err error) {
	// Idempotent if the source already exists.
	_ = eventlog.InstallAsEventCreate(serviceName, eventlog.Error|eventlog.Warning|eventlog.Info)

	elog, openErr := eventlog.Open(serviceName)
	if openErr != nil {
		return
	}
	defer elog.Close()

	elog.Error(1, fmt.Sprintf("Failed to start: %v", err))
}
