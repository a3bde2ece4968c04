package lifecycle

import "errors"

var (
	// ErrNotManaged means the process was not started by the service
	// manager. Fatal: the process must exit non-zero without attempting any
	// service operation.
	ErrNotManaged = errors.New("process not started by the service manager")

	// ErrRegistration means the manager rejected the control handler
	// registration. Fatal: nothing further may be reported.
	ErrRegistration = errors.New("control handler registration rejected")
)
