// Package commands implements the circadianctl command tree.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/circadiand/pkg/client"
)

// NewRootCommand creates the root command.
func NewRootCommand(logger *slog.Logger, version, commit, buildDate string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "circadianctl",
		Short: "Control the circadiand adaptive lighting daemon",
	}

	cmd.PersistentFlags().String("socket", "", "Path to circadiand socket")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	cmd.AddCommand(
		newVersionCommand(version, commit, buildDate),
		NewZoneCommand(logger),
		NewCycleCommand(),
		NewAPIKeyCommand(logger),
		NewLogLevelCommand(),
	)

	return cmd
}

func clientFromCmd(cmd *cobra.Command) (client.Interface, error) {
	c, ok := cmd.Context().Value(ClientContextKey).(client.Interface)
	if !ok {
		return nil, fmt.Errorf("client not found in context")
	}
	return c, nil
}

func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Client:\n")
			fmt.Printf("  Version:    %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)

			c, err := clientFromCmd(cmd)
			if err != nil {
				return
			}
			resp, err := c.GetVersion()
			if err != nil {
				fmt.Printf("\nDaemon: not reachable\n")
				return
			}
			fmt.Printf("\nDaemon:\n")
			if v, ok := resp["version"].(string); ok {
				fmt.Printf("  Version:    %s\n", v)
			}
			if v, ok := resp["commit"].(string); ok {
				fmt.Printf("  Commit:     %s\n", v)
			}
			if v, ok := resp["build_date"].(string); ok {
				fmt.Printf("  Build Date: %s\n", v)
			}
		},
	}
}

// NewCycleCommand creates the cycle command.
func NewCycleCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Show the current day-cycle percentage",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			pct, err := c.GetPercentage()
			if err != nil {
				return fmt.Errorf("failed to get percentage: %w", err)
			}
			if parseable {
				fmt.Printf("percentage=%.2f\n", pct)
				return nil
			}
			fmt.Printf("Day-cycle percentage: %.2f (0 = sunset edge, 1 = solar noon)\n", pct)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format")
	return cmd
}

// NewLogLevelCommand creates the log-level command.
func NewLogLevelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log-level [level]",
		Short: "Get or set the daemon log level",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				level, err := c.GetLogLevel()
				if err != nil {
					return fmt.Errorf("failed to get log level: %w", err)
				}
				fmt.Printf("level=%s\n", level)
				return nil
			}
			if err := c.SetLogLevel(args[0]); err != nil {
				return fmt.Errorf("failed to set log level: %w", err)
			}
			fmt.Printf("level=%s\n", args[0])
			return nil
		},
	}
	return cmd
}
