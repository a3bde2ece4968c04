package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"svcrunner/internal/logger"
)

// rawConfig is used for JSON unmarshaling with duration strings.
type rawConfig struct {
	Service   rawServiceConfig   `json:"Service"`
	Events    rawEventsConfig    `json:"Events"`
	Heartbeat rawHeartbeatConfig `json:"Heartbeat"`
	Logging   *logger.Config     `json:"Logging"`
}

type rawServiceConfig struct {
	Name         string `json:"Name"`
	TickInterval string `json:"TickInterval"`
	WaitHint     string `json:"WaitHint"`
}

type rawEventsConfig struct {
	Type       string          `json:"Type"`
	File       *FileConfig     `json:"File"`
	Kafka      *rawKafkaConfig `json:"Kafka"`
	SOCKSProxy SOCKSConfig     `json:"SocksProxy"`
}

type rawKafkaConfig struct {
	Brokers        []string `json:"Brokers"`
	Topic          string   `json:"Topic"`
	Compression    string   `json:"Compression"`
	RequiredAcks   int      `json:"RequiredAcks"`
	MaxRetries     int      `json:"MaxRetries"`
	RetryBackoff   string   `json:"RetryBackoff"`
	FlushFrequency string   `json:"FlushFrequency"`
	Timeout        string   `json:"Timeout"`
	EnableTLS      bool     `json:"EnableTLS"`
	TLSCertFile    string   `json:"TLSCertFile"`
	TLSKeyFile     string   `json:"TLSKeyFile"`
	TLSCAFile      string   `json:"TLSCAFile"`
	SASLEnabled    bool     `json:"SASLEnabled"`
	SASLMechanism  string   `json:"SASLMechanism"`
	SASLUser       string   `json:"SASLUser"`
	SASLPassword   string   `json:"SASLPassword"`
}

type rawHeartbeatConfig struct {
	Enabled  bool   `json:"Enabled"`
	Address  string `json:"Address"`
	Password string `json:"Password"`
	DB       int    `json:"DB"`
	Interval string `json:"Interval"`
}

// Load reads configuration from the specified file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from JSON bytes, applying defaults for fields
// the file does not set.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := DefaultConfig()

	if raw.Service.Name != "" {
		cfg.Service.Name = raw.Service.Name
	}
	if err := setDuration(&cfg.Service.TickInterval, raw.Service.TickInterval, "Service.TickInterval"); err != nil {
		return nil, err
	}
	if err := setDuration(&cfg.Service.WaitHint, raw.Service.WaitHint, "Service.WaitHint"); err != nil {
		return nil, err
	}

	if raw.Events.Type != "" {
		cfg.Events.Type = raw.Events.Type
	}
	if raw.Events.File != nil {
		cfg.Events.File = *raw.Events.File
	}
	if raw.Events.Kafka != nil {
		kafka, err := convertRawKafka(raw.Events.Kafka, cfg.Events.Kafka)
		if err != nil {
			return nil, err
		}
		cfg.Events.Kafka = *kafka
	}
	cfg.Events.SOCKSProxy = raw.Events.SOCKSProxy

	cfg.Heartbeat.Enabled = raw.Heartbeat.Enabled
	if raw.Heartbeat.Address != "" {
		cfg.Heartbeat.Address = raw.Heartbeat.Address
	}
	cfg.Heartbeat.Password = raw.Heartbeat.Password
	cfg.Heartbeat.DB = raw.Heartbeat.DB
	if err := setDuration(&cfg.Heartbeat.Interval, raw.Heartbeat.Interval, "Heartbeat.Interval"); err != nil {
		return nil, err
	}

	if raw.Logging != nil {
		cfg.Logging = *raw.Logging
	}

	return cfg, nil
}

func convertRawKafka(raw *rawKafkaConfig, def KafkaConfig) (*KafkaConfig, error) {
	kafka := &KafkaConfig{
		Brokers:       raw.Brokers,
		Topic:         raw.Topic,
		Compression:   raw.Compression,
		RequiredAcks:  raw.RequiredAcks,
		MaxRetries:    raw.MaxRetries,
		EnableTLS:     raw.EnableTLS,
		TLSCertFile:   raw.TLSCertFile,
		TLSKeyFile:    raw.TLSKeyFile,
		TLSCAFile:     raw.TLSCAFile,
		SASLEnabled:   raw.SASLEnabled,
		SASLMechanism: raw.SASLMechanism,
		SASLUser:      raw.SASLUser,
		SASLPassword:  raw.SASLPassword,

		RetryBackoff:   def.RetryBackoff,
		FlushFrequency: def.FlushFrequency,
		Timeout:        def.Timeout,
	}

	if len(kafka.Brokers) == 0 {
		kafka.Brokers = def.Brokers
	}
	if kafka.Topic == "" {
		kafka.Topic = def.Topic
	}
	if err := setDuration(&kafka.RetryBackoff, raw.RetryBackoff, "Kafka.RetryBackoff"); err != nil {
		return nil, err
	}
	if err := setDuration(&kafka.FlushFrequency, raw.FlushFrequency, "Kafka.FlushFrequency"); err != nil {
		return nil, err
	}
	if err := setDuration(&kafka.Timeout, raw.Timeout, "Kafka.Timeout"); err != nil {
		return nil, err
	}

	return kafka, nil
}

func setDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s duration: %w", field, err)
	}
	*dst = d
	return nil
}
