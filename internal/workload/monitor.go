// Package workload provides the default supervised workload: a host
// resource snapshot taken on every tick. It exists so the agent does useful
// work out of the box; any other workload can be swapped in behind the same
// contract.
package workload

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"svcrunner/internal/logger"
)

// Snapshot is one tick's worth of host data.
type Snapshot struct {
	CPUPercent float64   `json:"cpu_percent"`
	MemPercent float64   `json:"mem_percent"`
	MemUsedMB  float64   `json:"mem_used_mb"`
	UptimeSec  uint64    `json:"uptime_sec"`
	Timestamp  time.Time `json:"timestamp"`
}

// Monitor implements the lifecycle workload contract.
type Monitor struct {
	log     zerolog.Logger
	publish func(Snapshot)

	mu     sync.Mutex
	paused bool
	ticks  atomic.Uint64
}

// New creates a monitor. publish receives every snapshot and may be nil.
func New(publish func(Snapshot)) *Monitor {
	return &Monitor{
		log:     logger.WithComponent("workload"),
		publish: publish,
	}
}

// OnStart warms up the CPU sampler and logs the host identity.
func (m *Monitor) OnStart(ctx context.Context) error {
	model, err := hostModel(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("Host model lookup failed")
	} else {
		m.log.Info().Str("host_model", model).Msg("Workload starting")
	}

	// First cpu.Percent call with zero interval establishes the baseline
	// the next call diffs against.
	if _, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		return err
	}
	return nil
}

// OnTick takes one snapshot.
func (m *Monitor) OnTick(ctx context.Context) error {
	m.mu.Lock()
	if m.paused {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	snap := Snapshot{Timestamp: time.Now()}

	if percentages, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percentages) > 0 {
		snap.CPUPercent = percentages[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}
	snap.MemPercent = vm.UsedPercent
	snap.MemUsedMB = float64(vm.Used) / 1024 / 1024

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		snap.UptimeSec = uptime
	}

	m.ticks.Add(1)
	m.log.Debug().
		Float64("cpu_percent", snap.CPUPercent).
		Float64("mem_percent", snap.MemPercent).
		Msg("Snapshot taken")

	if m.publish != nil {
		m.publish(snap)
	}
	return nil
}

// OnShutdown has nothing durable to flush; it reports a clean exit.
func (m *Monitor) OnShutdown(ctx context.Context) uint32 {
	m.log.Info().Uint64("ticks", m.ticks.Load()).Msg("Workload shut down")
	return 0
}

// OnPause suspends snapshotting.
func (m *Monitor) OnPause() error {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
	m.log.Info().Msg("Workload paused")
	return nil
}

// OnContinue resumes snapshotting.
func (m *Monitor) OnContinue() error {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
	m.log.Info().Msg("Workload resumed")
	return nil
}

// Ticks returns the number of snapshots taken.
func (m *Monitor) Ticks() uint64 {
	return m.ticks.Load()
}
