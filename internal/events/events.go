// Package events publishes lifecycle state transitions to an external sink
// so operators can trace a service's history without scraping logs.
package events

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"svcrunner/internal/lifecycle"
	"svcrunner/internal/logger"
)

// Event is one reported lifecycle transition.
type Event struct {
	Service    string    `json:"service"`
	State      string    `json:"state"`
	Checkpoint uint32    `json:"checkpoint"`
	ExitCode   uint32    `json:"exit_code"`
	Hostname   string    `json:"hostname"`
	PID        int       `json:"pid"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sender delivers events to a destination.
type Sender interface {
	// Send transmits one event.
	Send(ctx context.Context, ev *Event) error

	// Close releases any resources held by the sender.
	Close() error
}

// Publisher turns a Sender into a transition hook for the lifecycle loop.
// Delivery failures are logged and swallowed: publishing is best-effort and
// must never block or fail a status transition.
type Publisher struct {
	service  string
	hostname string
	pid      int
	sender   Sender
	log      zerolog.Logger
}

// NewPublisher creates a publisher stamping events with the service identity.
func NewPublisher(service string, sender Sender) *Publisher {
	hostname, _ := os.Hostname()
	return &Publisher{
		service:  service,
		hostname: hostname,
		pid:      os.Getpid(),
		sender:   sender,
		log:      logger.WithComponent("events"),
	}
}

// Hook returns the callback to install with lifecycle.WithTransitionHook.
func (p *Publisher) Hook() func(lifecycle.Status) {
	return func(st lifecycle.Status) {
		ev := &Event{
			Service:    p.service,
			State:      st.State.String(),
			Checkpoint: st.Checkpoint,
			ExitCode:   st.ExitCode,
			Hostname:   p.hostname,
			PID:        p.pid,
			Timestamp:  time.Now(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := p.sender.Send(ctx, ev); err != nil {
			p.log.Warn().
				Err(err).
				Str("state", ev.State).
				Msg("Failed to publish lifecycle event")
		}
	}
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}
