//go:build !windows
// +build !windows

package service

// ReportStartupError is a no-op on non-Windows platforms; startup errors
// reach the journal through stderr.
func ReportStartupError(serviceName string, err error) {
}
