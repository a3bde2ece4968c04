package service

import (
	"os"
	"os/signal"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"

	"svcrunner/internal/lifecycle"
	"svcrunner/internal/logger"
)

// signalManager adapts process signals into control requests. It backs both
// the interactive mode and the unix service mode; the signal set and its
// mapping are platform-specific.
type signalManager struct {
	mu       sync.Mutex
	handlers []lifecycle.Handler
	sigs     chan os.Signal
	done     chan struct{}
	wg       sync.WaitGroup
	log      zerolog.Logger
}

func newSignalManager() *signalManager {
	m := &signalManager{
		sigs: make(chan os.Signal, 4),
		done: make(chan struct{}),
		log:  logger.WithComponent("signal-manager"),
	}
	signal.Notify(m.sigs, watchedSignals...)

	m.wg.Add(1)
	go m.dispatch()
	return m
}

// Register implements lifecycle.Manager. All registered handlers receive
// every signal-derived control; signals are process-wide.
func (m *signalManager) Register(name string, h lifecycle.Handler) (lifecycle.StatusReporter, error) {
	m.mu.Lock()
	m.handlers = append(m.handlers, h)
	m.mu.Unlock()

	return &notifyReporter{
		log: logger.WithComponent("status-report").With().Str("service", name).Logger(),
	}, nil
}

func (m *signalManager) dispatch() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case sig := <-m.sigs:
			req, ok := controlFromSignal(sig)
			if !ok {
				continue
			}
			m.log.Info().Str("signal", sig.String()).Str("control", req.String()).Msg("Signal received")
			m.deliver(req)
		}
	}
}

func (m *signalManager) deliver(req lifecycle.ControlRequest) {
	m.mu.Lock()
	handlers := append([]lifecycle.Handler(nil), m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		h.Handle(req)
	}
}

func (m *signalManager) stop() {
	signal.Stop(m.sigs)
	close(m.done)
	m.wg.Wait()
}

// notifyReporter logs every status report and forwards the interesting
// transitions to systemd's notify socket. Without the socket sd_notify is a
// no-op, which is exactly right for interactive runs.
type notifyReporter struct {
	log zerolog.Logger
}

func (r *notifyReporter) Report(st lifecycle.Status) error {
	r.log.Debug().
		Str("state", st.State.String()).
		Uint32("checkpoint", st.Checkpoint).
		Uint32("exit_code", st.ExitCode).
		Msg("Status reported")

	var note string
	switch st.State {
	case lifecycle.StateRunning:
		note = daemon.SdNotifyReady
	case lifecycle.StateStopPending:
		note = daemon.SdNotifyStopping
	}
	if note != "" {
		if _, err := daemon.SdNotify(false, note); err != nil {
			return err
		}
	}
	_, err := daemon.SdNotify(false, "STATUS="+st.State.String())
	return err
}
