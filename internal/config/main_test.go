package config

import (
	"os"
	"testing"

	"svcrunner/internal/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.Config{Level: "disabled"})
	os.Exit(m.Run())
}
