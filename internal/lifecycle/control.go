package lifecycle

import (
	"github.com/rs/zerolog"

	"svcrunner/internal/logger"
)

// ControlRequest is a control code delivered asynchronously by the service
// manager. Codes outside the known set must be acknowledged as successfully
// handled no-ops; managers reserve ranges for future use.
type ControlRequest uint32

const (
	ControlStop ControlRequest = iota + 1
	ControlPause
	ControlContinue
	ControlInterrogate
	ControlShutdown
)

// String returns the control name for logging.
func (c ControlRequest) String() string {
	switch c {
	case ControlStop:
		return "stop"
	case ControlPause:
		return "pause"
	case ControlContinue:
		return "continue"
	case ControlInterrogate:
		return "interrogate"
	case ControlShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Handler receives control requests from the service manager. Handle runs on
// the manager's dispatch goroutine, unsynchronized against the run loop, and
// must return well inside the manager's time budget (a few seconds). It only
// flips state and reports; teardown work belongs to the run loop.
type Handler interface {
	Handle(req ControlRequest)
}

// sink is the control handler registered with the manager. It mutates the
// shared status record and leaves everything else to the run loop.
type sink struct {
	status *StatusTracker
	log    zerolog.Logger
}

func newSink(t *StatusTracker) *sink {
	return &sink{status: t, log: logger.WithComponent("control")}
}

func (s *sink) Handle(req ControlRequest) {
	switch req {
	case ControlInterrogate:
		s.status.Reaffirm()

	case ControlStop, ControlShutdown:
		if s.status.requestStop() {
			s.log.Info().Str("control", req.String()).Msg("Stop requested by service manager")
		}

	case ControlPause:
		if s.status.requestPause() {
			s.log.Info().Msg("Pause requested by service manager")
		}

	case ControlContinue:
		if s.status.requestContinue() {
			s.log.Info().Msg("Continue requested by service manager")
		}

	default:
		// Unrecognized codes succeed without touching the record.
		s.log.Debug().Uint32("control", uint32(req)).Msg("Ignoring unrecognized control request")
	}
}
