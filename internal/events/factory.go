package events

import (
	"context"
	"fmt"
	"strings"

	"svcrunner/internal/config"
	"svcrunner/internal/logger"
)

// NewSender creates a Sender based on the configuration.
func NewSender(cfg config.EventsConfig) (Sender, error) {
	sinkType := strings.ToLower(cfg.Type)
	if sinkType == "" {
		sinkType = "file"
	}

	log := logger.WithComponent("events-factory")
	log.Info().
		Str("type", sinkType).
		Msg("Creating event sender")

	switch sinkType {
	case "kafka":
		return NewKafkaSender(cfg.Kafka, cfg.SOCKSProxy)
	case "file":
		return NewFileSender(cfg.File)
	case "none":
		return nopSender{}, nil
	default:
		return nil, fmt.Errorf("unknown event sink type: %s (supported: kafka, file, none)", sinkType)
	}
}

type nopSender struct{}

func (nopSender) Send(context.Context, *Event) error { return nil }
func (nopSender) Close() error                       { return nil }
