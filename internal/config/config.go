// Package config provides configuration management for svcrunner.
package config

import (
	"time"

	"svcrunner/internal/logger"
)

// Config is the root configuration structure.
type Config struct {
	Service   ServiceConfig   `json:"Service"`
	Events    EventsConfig    `json:"Events"`
	Heartbeat HeartbeatConfig `json:"Heartbeat"`
	Logging   logger.Config   `json:"Logging"`
}

// ServiceConfig controls the lifecycle loop.
type ServiceConfig struct {
	Name         string        `json:"Name"`
	TickInterval time.Duration `json:"TickInterval"`
	WaitHint     time.Duration `json:"WaitHint"`
}

// EventsConfig selects and configures the lifecycle event publisher.
type EventsConfig struct {
	Type       string      `json:"Type"` // "file", "kafka", or "none"
	File       FileConfig  `json:"File"`
	Kafka      KafkaConfig `json:"Kafka"`
	SOCKSProxy SOCKSConfig `json:"SocksProxy"`
}

// FileConfig contains settings for the file event sink.
type FileConfig struct {
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	Pretty     bool   `json:"Pretty"`
}

// KafkaConfig contains Kafka connection settings for the event sink.
type KafkaConfig struct {
	Brokers        []string      `json:"Brokers"`
	Topic          string        `json:"Topic"`
	Compression    string        `json:"Compression"`
	RequiredAcks   int           `json:"RequiredAcks"`
	MaxRetries     int           `json:"MaxRetries"`
	RetryBackoff   time.Duration `json:"RetryBackoff"`
	FlushFrequency time.Duration `json:"FlushFrequency"`
	Timeout        time.Duration `json:"Timeout"`
	EnableTLS      bool          `json:"EnableTLS"`
	TLSCertFile    string        `json:"TLSCertFile"`
	TLSKeyFile     string        `json:"TLSKeyFile"`
	TLSCAFile      string        `json:"TLSCAFile"`
	SASLEnabled    bool          `json:"SASLEnabled"`
	SASLMechanism  string        `json:"SASLMechanism"`
	SASLUser       string        `json:"SASLUser"`
	SASLPassword   string        `json:"SASLPassword"`
}

// HeartbeatConfig contains settings for the Redis liveness beacon.
type HeartbeatConfig struct {
	Enabled  bool          `json:"Enabled"`
	Address  string        `json:"Address"`
	Password string        `json:"Password"`
	DB       int           `json:"DB"`
	Interval time.Duration `json:"Interval"`
}

// SOCKSConfig contains SOCKS5 proxy settings.
type SOCKSConfig struct {
	Host string `json:"Host"`
	Port int    `json:"Port"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:         "SvcRunner",
			TickInterval: 1 * time.Second,
			WaitHint:     5 * time.Second,
		},
		Events: EventsConfig{
			Type: "file",
			File: FileConfig{
				FilePath:   "log/svcrunner/events.jsonl",
				MaxSizeMB:  50,
				MaxBackups: 3,
			},
			Kafka: KafkaConfig{
				Brokers:        []string{"localhost:9092"},
				Topic:          "service-lifecycle",
				Compression:    "snappy",
				RequiredAcks:   1,
				MaxRetries:     3,
				RetryBackoff:   250 * time.Millisecond,
				FlushFrequency: 500 * time.Millisecond,
				Timeout:        10 * time.Second,
			},
		},
		Heartbeat: HeartbeatConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			Interval: 30 * time.Second,
		},
		Logging: logger.DefaultConfig(),
	}
}
