package lifecycle

// Manager abstracts the OS service manager's registration surface. Platform
// bindings adapt the real framework onto this interface; tests substitute a
// fake.
type Manager interface {
	// Register installs h as the control handler for the named service and
	// returns the reporter used for every subsequent status report. The
	// manager may invoke h at any time after Register returns.
	Register(name string, h Handler) (StatusReporter, error)
}

// StatusReporter delivers status snapshots to the manager. The returned
// token is owned by the run loop for one service lifetime and is invalid
// after the loop returns. Report calls are serialized by the tracker issuing
// them one at a time.
type StatusReporter interface {
	Report(Status) error
}
