// Package heartbeat maintains a TTL-guarded liveness key in Redis so
// monitoring can distinguish a stopped service from a dead one.
package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"

	"svcrunner/internal/config"
	"svcrunner/internal/lifecycle"
	"svcrunner/internal/logger"
)

// keyPrefix namespaces beacon keys; the service name completes the key.
const keyPrefix = "svcrunner:heartbeat:"

// payload is the JSON value stored under the beacon key.
type payload struct {
	Service   string    `json:"service"`
	State     string    `json:"state"`
	Hostname  string    `json:"hostname"`
	PID       int       `json:"pid"`
	Timestamp time.Time `json:"timestamp"`
}

// Beacon periodically refreshes the liveness key with the current lifecycle
// state. The key's TTL is three intervals: missing two consecutive beats
// marks the agent dead.
type Beacon struct {
	client   *redis.Client
	service  string
	hostname string
	interval time.Duration
	statusFn func() lifecycle.Status
	clk      clock.Clock
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Option configures a Beacon.
type Option func(*Beacon)

// WithClock substitutes the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(b *Beacon) { b.clk = c }
}

// New creates a beacon for the named service. statusFn supplies the state
// stamped into each beat; dialFunc is an optional proxy dialer.
func New(cfg config.HeartbeatConfig, service string, statusFn func() lifecycle.Status,
	dialFunc func(string, string) (net.Conn, error), opts ...Option) *Beacon {

	redisOpts := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if dialFunc != nil {
		redisOpts.Dialer = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialFunc(network, addr)
		}
	}

	hostname, _ := os.Hostname()
	b := &Beacon{
		client:   redis.NewClient(redisOpts),
		service:  service,
		hostname: hostname,
		interval: cfg.Interval,
		statusFn: statusFn,
		clk:      clock.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start publishes the first beat synchronously (returns an error on
// failure), then refreshes in the background until Stop.
func (b *Beacon) Start(ctx context.Context) error {
	if err := b.beat(ctx); err != nil {
		return fmt.Errorf("initial heartbeat failed: %w", err)
	}

	beatCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.wg.Add(1)
	go b.loop(beatCtx)
	return nil
}

// Stop cancels the background refresher, waits for it to finish and closes
// the Redis client.
func (b *Beacon) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	_ = b.client.Close()
}

// Key returns the Redis key this beacon maintains.
func (b *Beacon) Key() string {
	return keyPrefix + b.service
}

func (b *Beacon) loop(ctx context.Context) {
	defer b.wg.Done()
	log := logger.WithComponent("heartbeat")

	ticker := b.clk.Ticker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.beat(ctx); err != nil {
				log.Warn().Err(err).Msg("Heartbeat refresh failed")
			}
		}
	}
}

func (b *Beacon) beat(ctx context.Context) error {
	st := b.statusFn()
	data, err := json.Marshal(payload{
		Service:   b.service,
		State:     st.State.String(),
		Hostname:  b.hostname,
		PID:       os.Getpid(),
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.Key(), data, 3*b.interval).Err()
}
