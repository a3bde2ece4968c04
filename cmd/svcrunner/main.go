// Package main is the entry point for the svcrunner agent.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"svcrunner/internal/config"
	"svcrunner/internal/events"
	"svcrunner/internal/heartbeat"
	"svcrunner/internal/lifecycle"
	"svcrunner/internal/logger"
	"svcrunner/internal/network"
	"svcrunner/internal/service"
	"svcrunner/internal/workload"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const startupErrorLogDir = "log/svcrunner"

func main() {
	var (
		configPath  = flag.String("config", "conf/svcrunner.json", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("svcrunner %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// A service process starts with its working directory in the system
	// directory. An absolute config path names the install root; chdir so
	// relative log paths land next to the install.
	if filepath.IsAbs(*configPath) {
		basePath := filepath.Dir(filepath.Dir(*configPath))
		if err := os.Chdir(basePath); err != nil {
			fatalStartup("SvcRunner", fmt.Errorf("failed to chdir to %s: %w", basePath, err))
		}
	}

	if service.IsManaged() {
		logger.SetServiceMode(true)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fatalStartup("SvcRunner", err)
		}
		cfg = config.DefaultConfig()
	}

	if err := logger.Init(cfg.Logging); err != nil {
		fatalStartup(cfg.Service.Name, err)
	}

	log := logger.WithComponent("main")
	log.Info().
		Str("version", version).
		Str("config", *configPath).
		Str("service", cfg.Service.Name).
		Msg("Starting svcrunner")

	snd, err := events.NewSender(cfg.Events)
	if err != nil {
		fatalStartup(cfg.Service.Name, err)
	}
	pub := events.NewPublisher(cfg.Service.Name, snd)
	defer pub.Close()

	loop := lifecycle.New(cfg.Service.Name, workload.New(nil),
		lifecycle.WithTickInterval(cfg.Service.TickInterval),
		lifecycle.WithWaitHint(cfg.Service.WaitHint),
		lifecycle.WithTransitionHook(pub.Hook()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Heartbeat.Enabled {
		dial := network.DialerFunc(cfg.Events.SOCKSProxy.Host, cfg.Events.SOCKSProxy.Port)
		hb := heartbeat.New(cfg.Heartbeat, cfg.Service.Name, loop.Status, dial)
		if err := hb.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("Heartbeat disabled, Redis unreachable")
		} else {
			defer hb.Stop()
		}
	}

	watcher, err := config.NewLoggingWatcher(*configPath, func(lc *logger.Config) {
		if err := logger.Init(*lc); err != nil {
			logger.Error().Err(err).Msg("Failed to apply logging configuration")
			return
		}
		logger.Info().Msg("Logging configuration updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create logging watcher, hot reload disabled")
	} else if err := watcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start logging watcher")
	} else {
		defer watcher.Stop()
	}

	entry := service.Entry{Name: cfg.Service.Name, Loop: loop}

	if service.IsManaged() {
		err = service.Dispatch(ctx, entry)
	} else {
		log.Info().Msg("No service manager detected, running interactively")
		err = service.Interactive(ctx, entry)
	}

	if err != nil {
		if errors.Is(err, lifecycle.ErrNotManaged) || errors.Is(err, lifecycle.ErrRegistration) {
			fatalStartup(cfg.Service.Name, err)
		}
		log.Error().Err(err).Msg("Service exited with error")
		code := int(loop.ExitCode())
		if code == 0 {
			code = 1
		}
		os.Exit(code)
	}

	log.Info().Msg("svcrunner stopped")
}

// fatalStartup records the error where an operator will find it even with
// no logger and no console, then exits non-zero.
func fatalStartup(serviceName string, err error) {
	service.ReportStartupError(serviceName, err)
	service.WriteStartupErrorFile(startupErrorLogDir, err)
	fmt.Fprintf(os.Stderr, "svcrunner: %v\n", err)
	os.Exit(1)
}
