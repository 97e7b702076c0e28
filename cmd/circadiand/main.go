package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/circadiand/internal/circadian"
	"github.com/jmylchreest/circadiand/internal/config"
	"github.com/jmylchreest/circadiand/internal/events"
	"github.com/jmylchreest/circadiand/internal/logging"
	"github.com/jmylchreest/circadiand/internal/server"
	"github.com/jmylchreest/circadiand/internal/zone"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("CIRCADIAND")
	v.AutomaticEnv()

	pflag.String("log-level", "info", "Log level (debug, info, warn, error)")
	pflag.String("log-format", "text", "Log format (text, json)")
	pflag.String("config", "", "Path to config file")
	pflag.Parse()

	v.BindPFlag("logging.level", pflag.Lookup("log-level"))
	v.BindPFlag("logging.format", pflag.Lookup("log-format"))

	cfg, err := config.Load(config.DaemonConfigFilename, v.GetString("config"))
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := cfg.Config.Logging.Level
	if v.GetString("logging.level") != "" {
		level = v.GetString("logging.level")
	}
	format := cfg.Config.Logging.Format
	if v.GetString("logging.format") != "" {
		format = v.GetString("logging.format")
	}
	logger := logging.Setup(level, format)
	slog.SetDefault(logger)

	logger.Info("Starting circadiand",
		"version", version,
		"commit", commit,
		"buildDate", buildDate,
	)

	bus := events.NewBus()

	// A configured fixed percentage replaces the solar clock, for rigs
	// without a useful location.
	var source circadian.Source
	if fp := cfg.Config.Cycle.FixedPercentage; fp != nil {
		logger.Info("Using fixed day-cycle percentage", "percentage", *fp)
		source = circadian.Fixed(*fp)
	} else {
		source = circadian.NewSolarClock(cfg.Config.Location.Latitude, cfg.Config.Location.Longitude, logger)
	}

	zones := zone.NewManager(logger, cfg, bus, source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interval := time.Duration(config.ValidateUpdateInterval(cfg.Config.Cycle.UpdateInterval)) * time.Second
	scheduler := circadian.NewScheduler(logger, source, zones, interval)
	scheduler.Start(ctx)

	// Re-apply zone settings when the config file changes on disk.
	cfg.Watch(logger, func(_, updated map[string]config.ZoneSettings) {
		zones.ReloadSettings(updated)
	})

	srv := server.New(logger, cfg, zones, source, bus, server.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	})
	if err := srv.Start(); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down...")
	cancel()
	srv.Stop()
}
