// Package service binds the lifecycle controller to the operating system's
// service framework: the Windows service control manager, systemd, or plain
// signals when running interactively.
package service

import (
	"context"
	"fmt"
	"sync"

	"svcrunner/internal/lifecycle"
)

// Entry pairs a service name with the loop the framework should drive.
type Entry struct {
	Name string
	Loop *lifecycle.Loop
}

// Interactive runs the entries under the signal-driven manager without
// requiring a service manager: Ctrl+C behaves like a stop control. It blocks
// until every loop has returned.
func Interactive(ctx context.Context, entries ...Entry) error {
	mgr := newSignalManager()
	defer mgr.stop()
	return runEntries(ctx, mgr, entries)
}

// runEntries drives every entry against the manager and blocks until all of
// them have finished, returning the first failure.
func runEntries(ctx context.Context, mgr lifecycle.Manager, entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("no service entries to dispatch")
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(entries))

	for _, e := range entries {
		wg.Add(1)
		go func(e Entry) {
			defer wg.Done()
			if err := e.Loop.Run(ctx, mgr); err != nil {
				errs <- fmt.Errorf("%s: %w", e.Name, err)
			}
		}(e)
	}

	wg.Wait()
	close(errs)
	return <-errs
}
