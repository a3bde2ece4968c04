package heartbeat

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"

	"svcrunner/internal/config"
	"svcrunner/internal/lifecycle"
	"svcrunner/internal/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.Config{Level: "disabled"})
	os.Exit(m.Run())
}

func testConfig(addr string) config.HeartbeatConfig {
	return config.HeartbeatConfig{
		Enabled:  true,
		Address:  addr,
		Interval: 1 * time.Second,
	}
}

func runningStatus() lifecycle.Status {
	return lifecycle.Status{State: lifecycle.StateRunning}
}

func TestBeacon_FirstBeat(t *testing.T) {
	srv := miniredis.RunT(t)

	b := New(testConfig(srv.Addr()), "BeatSvc", runningStatus, nil)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer b.Stop()

	if b.Key() != "svcrunner:heartbeat:BeatSvc" {
		t.Fatalf("Key() = %q", b.Key())
	}
	raw, err := srv.Get(b.Key())
	if err != nil {
		t.Fatalf("key not set: %v", err)
	}

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if p.Service != "BeatSvc" || p.State != "running" {
		t.Errorf("payload = %+v", p)
	}
	if p.PID != os.Getpid() {
		t.Errorf("payload PID = %d", p.PID)
	}
	if p.Timestamp.IsZero() {
		t.Error("payload has no timestamp")
	}

	ttl := srv.TTL(b.Key())
	if ttl <= 0 || ttl > 3*time.Second {
		t.Errorf("TTL = %v, want (0, 3s]", ttl)
	}
}

func TestBeacon_RefreshesOnInterval(t *testing.T) {
	srv := miniredis.RunT(t)
	mock := clock.NewMock()

	var (
		mu    sync.Mutex
		state = lifecycle.StateRunning
	)
	statusFn := func() lifecycle.Status {
		mu.Lock()
		defer mu.Unlock()
		return lifecycle.Status{State: state}
	}

	b := New(testConfig(srv.Addr()), "RefreshSvc", statusFn, nil, WithClock(mock))
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer b.Stop()

	mu.Lock()
	state = lifecycle.StateStopPending
	mu.Unlock()

	// The refresher creates its ticker on its own goroutine; keep nudging the
	// mock clock until the beat lands.
	deadline := time.Now().Add(3 * time.Second)
	for {
		mock.Add(1 * time.Second)
		raw, err := srv.Get(b.Key())
		if err == nil {
			var p payload
			if err := json.Unmarshal([]byte(raw), &p); err == nil && p.State == "stop-pending" {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("beat never refreshed with the new state")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBeacon_StartFailsWhenUnreachable(t *testing.T) {
	// A miniredis that has already been shut down yields a dead address.
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	cfg := testConfig(addr)
	b := New(cfg, "DeadSvc", runningStatus, nil)
	defer b.Stop()

	if err := b.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded against a dead server")
	}
}

func TestBeacon_KeyExpiresWithoutBeats(t *testing.T) {
	srv := miniredis.RunT(t)
	mock := clock.NewMock()

	b := New(testConfig(srv.Addr()), "ExpireSvc", runningStatus, nil, WithClock(mock))
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	b.Stop()

	// With the beacon stopped, advancing Redis past the TTL drops the key.
	srv.FastForward(4 * time.Second)
	if srv.Exists(b.Key()) {
		t.Fatal("key survived past its TTL")
	}
}
