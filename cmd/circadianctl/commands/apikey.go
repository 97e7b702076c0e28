package commands

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// NewAPIKeyCommand creates the apikey command group.
func NewAPIKeyCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "api-key",
		Short:   "Manage API keys for the HTTP API",
		Aliases: []string{"api"},
	}

	cmd.AddCommand(
		newAPIKeyListCommand(),
		newAPIKeyAddCommand(),
		newAPIKeyDeleteCommand(),
		newAPIKeySetEnabledCommand(),
	)

	return cmd
}

func obfuscateAPIKey(key string) string {
	if len(key) > 8 {
		return key[:4] + "..." + key[len(key)-4:]
	}
	return key
}

// formatTimeForDisplay renders an RFC3339 timestamp for table output. Zero
// and unparseable times show as Never.
func formatTimeForDisplay(raw string) string {
	if raw == "" || raw == "0001-01-01T00:00:00Z" {
		return "Never"
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil || t.IsZero() {
		return "Never"
	}
	return t.Format(time.RFC1123)
}

func newAPIKeyListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}

			keys, err := c.ListAPIKeys()
			if err != nil {
				return fmt.Errorf("failed to list API keys: %w", err)
			}

			if len(keys) == 0 {
				pterm.Info.Println("No API keys found.")
				return nil
			}

			if parseable {
				for _, entry := range keys {
					keyMap, _ := entry.(map[string]any)
					name, _ := keyMap["name"].(string)
					keyStr, _ := keyMap["key"].(string)
					disabled, _ := keyMap["disabled"].(bool)
					createdAt, _ := keyMap["created_at"].(string)
					expiresAt, _ := keyMap["expires_at"].(string)
					fmt.Printf("name=%s key=%s created_at=%s expires_at=%s enabled=%t\n",
						strconv.Quote(name), strconv.Quote(keyStr), createdAt, expiresAt, !disabled)
				}
				return nil
			}

			table := pterm.TableData{{"Name", "Key (Partial)", "Created At", "Expires At", "Enabled"}}
			for _, entry := range keys {
				keyMap, _ := entry.(map[string]any)
				name, _ := keyMap["name"].(string)
				keyStr, _ := keyMap["key"].(string)
				disabled, _ := keyMap["disabled"].(bool)
				createdAt, _ := keyMap["created_at"].(string)
				expiresAt, _ := keyMap["expires_at"].(string)

				table = append(table, []string{
					name,
					obfuscateAPIKey(keyStr),
					formatTimeForDisplay(createdAt),
					formatTimeForDisplay(expiresAt),
					strconv.FormatBool(!disabled),
				})
			}
			pterm.DefaultTable.WithHasHeader().WithData(table).Render()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format")
	return cmd
}

func newAPIKeyAddCommand() *cobra.Command {
	var name string
	var expiresIn string

	cmd := &cobra.Command{
		Use:   "add [name] [duration]",
		Short: "Add a new API key. Duration can be like 24h, 720h, or 0 for never.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				name = args[0]
			}
			if name == "" {
				name, err = pterm.DefaultInteractiveTextInput.WithMultiLine(false).Show("Enter a friendly name for the API key")
				if err != nil {
					return fmt.Errorf("failed to get API key name: %w", err)
				}
				if name == "" {
					return fmt.Errorf("API key name cannot be empty")
				}
			}

			if len(args) > 1 {
				expiresIn = args[1]
			}
			if expiresIn == "0" {
				expiresIn = ""
			}
			if expiresIn != "" {
				if _, err := time.ParseDuration(expiresIn); err != nil {
					return fmt.Errorf("invalid duration %q, use formats like 300s, 1.5h, 720h, or 0 for never: %w", expiresIn, err)
				}
			}

			created, err := c.CreateAPIKey(name, expiresIn)
			if err != nil {
				return fmt.Errorf("failed to add API key: %w", err)
			}

			keyStr, _ := created["key"].(string)
			keyName, _ := created["name"].(string)
			expiresAt, _ := created["expires_at"].(string)

			pterm.Success.Println("API Key created successfully!")
			pterm.Info.Println("  Name:    ", keyName)
			pterm.Warning.Println("  Key:     ", keyStr, "(Store this securely! It will not be shown again.)")
			pterm.Info.Println("  Expires: ", formatTimeForDisplay(expiresAt))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Friendly name for the API key (overridden by positional argument)")
	cmd.Flags().StringVar(&expiresIn, "expires-in", "", "Duration until key expires (e.g. 720h, 0 or empty for never)")
	return cmd
}

func newAPIKeyDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [key_string]",
		Short: "Delete an API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}

			keyToDelete := ""
			if len(args) > 0 {
				keyToDelete = args[0]
			} else {
				keys, err := c.ListAPIKeys()
				if err != nil {
					return fmt.Errorf("failed to list API keys for selection: %w", err)
				}
				if len(keys) == 0 {
					pterm.Info.Println("No API keys found to delete.")
					return nil
				}

				options := []string{}
				keyMapForSelection := make(map[string]string)
				for _, entry := range keys {
					keyMap, _ := entry.(map[string]any)
					name, _ := keyMap["name"].(string)
					fullKey, _ := keyMap["key"].(string)
					displayString := fmt.Sprintf("%s (%s)", name, obfuscateAPIKey(fullKey))
					options = append(options, displayString)
					keyMapForSelection[displayString] = fullKey
				}

				selected, err := pterm.DefaultInteractiveSelect.
					WithDefaultText("Select API key to delete").
					WithOptions(options).
					Show()
				if err != nil {
					return fmt.Errorf("API key selection failed: %w", err)
				}
				keyToDelete = keyMapForSelection[selected]
			}

			if keyToDelete == "" {
				return fmt.Errorf("no API key specified or selected for deletion")
			}

			if err := c.DeleteAPIKey(keyToDelete); err != nil {
				return fmt.Errorf("failed to delete API key: %w", err)
			}

			pterm.Success.Printf("API Key '%s' deleted successfully.\n", obfuscateAPIKey(keyToDelete))
			return nil
		},
	}
	return cmd
}

func newAPIKeySetEnabledCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-enabled [key_or_name] [true|false]",
		Short: "Set the enabled status of an API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}

			var enabled bool
			switch strings.ToLower(args[1]) {
			case "true", "enabled":
				enabled = true
			case "false", "disabled":
				enabled = false
			default:
				return fmt.Errorf("invalid status argument: %s. Must be true, false, enabled, or disabled", args[1])
			}

			updated, err := c.SetAPIKeyDisabled(args[0], !enabled)
			if err != nil {
				return fmt.Errorf("failed to set API key enabled status: %w", err)
			}

			name, _ := updated["name"].(string)
			disabled, _ := updated["disabled"].(bool)
			pterm.Success.Printf("API key '%s' (%s) status set to: Enabled=%t\n", name, obfuscateAPIKey(args[0]), !disabled)
			return nil
		},
	}
	return cmd
}
