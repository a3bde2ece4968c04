package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	def := DefaultConfig()
	if cfg.Service.Name != def.Service.Name {
		t.Errorf("Name = %q, want %q", cfg.Service.Name, def.Service.Name)
	}
	if cfg.Service.TickInterval != def.Service.TickInterval {
		t.Errorf("TickInterval = %v, want %v", cfg.Service.TickInterval, def.Service.TickInterval)
	}
	if cfg.Service.WaitHint != def.Service.WaitHint {
		t.Errorf("WaitHint = %v, want %v", cfg.Service.WaitHint, def.Service.WaitHint)
	}
	if cfg.Events.Type != "file" {
		t.Errorf("Events.Type = %q, want file", cfg.Events.Type)
	}
	if cfg.Heartbeat.Enabled {
		t.Error("heartbeat enabled by default")
	}
	if cfg.Heartbeat.Interval != def.Heartbeat.Interval {
		t.Errorf("Heartbeat.Interval = %v, want %v", cfg.Heartbeat.Interval, def.Heartbeat.Interval)
	}
}

func TestParse_OverridesAndDurations(t *testing.T) {
	data := []byte(`{
		"Service": {
			"Name": "MyService",
			"TickInterval": "250ms",
			"WaitHint": "10s"
		},
		"Events": {
			"Type": "kafka",
			"Kafka": {
				"Brokers": ["kafka-1:9092", "kafka-2:9092"],
				"Topic": "lifecycle",
				"RetryBackoff": "1s",
				"SASLEnabled": true,
				"SASLMechanism": "SCRAM-SHA-512",
				"SASLUser": "svc",
				"SASLPassword": "secret"
			},
			"SocksProxy": {"Host": "proxy.local", "Port": 1080}
		},
		"Heartbeat": {
			"Enabled": true,
			"Address": "redis.local:6379",
			"DB": 2,
			"Interval": "5s"
		},
		"Logging": {
			"Level": "debug"
		}
	}`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Service.Name != "MyService" {
		t.Errorf("Name = %q", cfg.Service.Name)
	}
	if cfg.Service.TickInterval != 250*time.Millisecond {
		t.Errorf("TickInterval = %v", cfg.Service.TickInterval)
	}
	if cfg.Service.WaitHint != 10*time.Second {
		t.Errorf("WaitHint = %v", cfg.Service.WaitHint)
	}

	k := cfg.Events.Kafka
	if len(k.Brokers) != 2 || k.Brokers[0] != "kafka-1:9092" {
		t.Errorf("Brokers = %v", k.Brokers)
	}
	if k.Topic != "lifecycle" {
		t.Errorf("Topic = %q", k.Topic)
	}
	if k.RetryBackoff != time.Second {
		t.Errorf("RetryBackoff = %v", k.RetryBackoff)
	}
	// Unset Kafka durations keep their defaults.
	if k.Timeout != DefaultConfig().Events.Kafka.Timeout {
		t.Errorf("Timeout = %v", k.Timeout)
	}
	if !k.SASLEnabled || k.SASLMechanism != "SCRAM-SHA-512" {
		t.Errorf("SASL = %+v", k)
	}

	if cfg.Events.SOCKSProxy.Host != "proxy.local" || cfg.Events.SOCKSProxy.Port != 1080 {
		t.Errorf("SOCKSProxy = %+v", cfg.Events.SOCKSProxy)
	}

	hb := cfg.Heartbeat
	if !hb.Enabled || hb.Address != "redis.local:6379" || hb.DB != 2 || hb.Interval != 5*time.Second {
		t.Errorf("Heartbeat = %+v", hb)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	cases := map[string]string{
		"tick":      `{"Service": {"TickInterval": "fast"}}`,
		"wait hint": `{"Service": {"WaitHint": "10 parsecs"}}`,
		"heartbeat": `{"Heartbeat": {"Interval": "soon"}}`,
		"kafka":     `{"Events": {"Kafka": {"Timeout": "whenever"}}}`,
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("%s: invalid duration accepted", name)
		}
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"Service": `)); err == nil {
		t.Fatal("truncated JSON accepted")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svcrunner.json")
	if err := os.WriteFile(path, []byte(`{"Service": {"Name": "FromFile"}}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.Name != "FromFile" {
		t.Errorf("Name = %q", cfg.Service.Name)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error does not expose os.ErrNotExist: %v", err)
	}
}
