package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"svcrunner/internal/config"
	"svcrunner/internal/logger"
)

// FileSender appends events as JSON lines to a rotated file.
type FileSender struct {
	writer      *lumberjack.Logger
	prettyPrint bool
	mu          sync.Mutex
	closed      bool
}

// NewFileSender creates a FileSender with the given configuration.
func NewFileSender(cfg config.FileConfig) (*FileSender, error) {
	dir := filepath.Dir(cfg.FilePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create event log directory: %w", err)
		}
	}

	writer := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}

	log := logger.WithComponent("file-events")
	log.Info().
		Str("file_path", cfg.FilePath).
		Bool("pretty", cfg.Pretty).
		Msg("FileSender initialized")

	return &FileSender{
		writer:      writer,
		prettyPrint: cfg.Pretty,
	}, nil
}

// Send writes a single event as one JSON line.
func (s *FileSender) Send(_ context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sender is closed")
	}

	var data []byte
	var err error
	if s.prettyPrint {
		data, err = json.MarshalIndent(ev, "", "  ")
	} else {
		data, err = json.Marshal(ev)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := s.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Close releases resources held by the FileSender.
func (s *FileSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}
