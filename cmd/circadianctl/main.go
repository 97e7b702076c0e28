package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/jmylchreest/circadiand/cmd/circadianctl/commands"
	"github.com/jmylchreest/circadiand/internal/config"
	"github.com/jmylchreest/circadiand/internal/logging"
	"github.com/jmylchreest/circadiand/pkg/client"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Pre-parse the persistent flags so logging and the socket path are
	// settled before cobra runs. Cobra parses them again during Execute.
	fs := pflag.NewFlagSet("circadianctl", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	socketFlag := fs.String("socket", "", "")
	logLevel := fs.String("log-level", "", "")
	logFormat := fs.String("log-format", "", "")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(config.ClientConfigFilename, "")
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := cfg.Config.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	format := cfg.Config.Logging.Format
	if *logFormat != "" {
		format = *logFormat
	}
	logger := logging.Setup(level, format)
	slog.SetDefault(logger)

	socket := cfg.Config.Server.UnixSocket
	if *socketFlag != "" {
		socket = *socketFlag
	}

	apiClient := client.New(logger, socket)

	rootCmd := commands.NewRootCommand(logger, version, commit, buildDate)
	ctx := context.WithValue(context.Background(), commands.ClientContextKey, client.Interface(apiClient))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
