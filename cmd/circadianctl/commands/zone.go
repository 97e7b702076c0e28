package commands

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/circadiand/pkg/client"
)

// NewZoneCommand creates the zone command group.
func NewZoneCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zone",
		Short: "Manage lighting zones",
	}

	cmd.AddCommand(
		newZoneListCommand(),
		newZoneGetCommand(),
		newZoneSetCommand(logger),
		newZoneSettingsCommand(logger),
	)

	return cmd
}

// newZoneListCommand creates the zone list command.
func newZoneListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured zones",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			zones, err := c.GetZones()
			if err != nil {
				return fmt.Errorf("failed to get zones: %w", err)
			}

			if len(zones) == 0 {
				if parseable {
					return nil
				}
				pterm.Info.Println("No zones configured")
				return nil
			}

			ids := make([]string, 0, len(zones))
			for id := range zones {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			if parseable {
				for _, id := range ids {
					zoneMap, _ := zones[id].(map[string]any)
					fmt.Println(ZoneParseable(id, zoneMap))
				}
				return nil
			}

			for _, id := range ids {
				zoneMap, _ := zones[id].(map[string]any)
				pterm.DefaultTable.WithData(ZoneTableData(id, zoneMap)).Render()
				pterm.Println()
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// selectZone prompts for a zone when no ID argument was given.
func selectZone(c client.Interface) (string, error) {
	zones, err := c.GetZones()
	if err != nil {
		return "", fmt.Errorf("failed to get zones: %w", err)
	}
	if len(zones) == 0 {
		return "", fmt.Errorf("no zones configured")
	}

	ids := make([]string, 0, len(zones))
	for id := range zones {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	options := make([]string, len(ids))
	for i, id := range ids {
		zoneMap, _ := zones[id].(map[string]any)
		options[i] = fmt.Sprintf("%s (%v)", id, zoneMap["name"])
	}

	selected, err := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		Show("Select a zone")
	if err != nil {
		return "", fmt.Errorf("failed to select zone: %w", err)
	}
	return strings.Split(selected, " (")[0], nil
}

// newZoneGetCommand creates the zone get command.
func newZoneGetCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get a zone's state and settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}

			var zoneID string
			if len(args) > 0 {
				zoneID = args[0]
			} else {
				zoneID, err = selectZone(c)
				if err != nil {
					return err
				}
			}

			zoneMap, err := c.GetZone(zoneID)
			if err != nil {
				return fmt.Errorf("failed to get zone: %w", err)
			}

			if parseable {
				fmt.Println(ZoneParseable(zoneID, zoneMap))
			} else {
				pterm.DefaultTable.WithData(ZoneTableData(zoneID, zoneMap)).Render()
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// newZoneSetCommand creates the zone set command.
func newZoneSetCommand(logger *slog.Logger) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "set [id]",
		Short: "Change a zone's mode or override its values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}

			var zoneID string
			if len(args) > 0 {
				zoneID = args[0]
			} else {
				zoneID, err = selectZone(c)
				if err != nil {
					return err
				}
			}

			var brightness, temperature *float64
			if cmd.Flags().Changed("brightness") {
				v, _ := cmd.Flags().GetFloat64("brightness")
				if v < 0 || v > 1 {
					return fmt.Errorf("brightness must be between 0 and 1")
				}
				brightness = &v
			}
			if cmd.Flags().Changed("temperature") {
				v, _ := cmd.Flags().GetFloat64("temperature")
				if v < 0 || v > 1 {
					return fmt.Errorf("temperature must be between 0 and 1")
				}
				temperature = &v
			}

			if mode == "" && brightness == nil && temperature == nil {
				return fmt.Errorf("nothing to set: use --mode, --brightness or --temperature")
			}

			var zoneMap map[string]any
			if mode != "" {
				zoneMap, err = c.SetZoneMode(zoneID, mode)
				if err != nil {
					return fmt.Errorf("failed to set zone mode: %w", err)
				}
			}
			if brightness != nil || temperature != nil {
				zoneMap, err = c.SetZoneState(zoneID, brightness, temperature)
				if err != nil {
					return fmt.Errorf("failed to set zone state: %w", err)
				}
			}

			pterm.Success.Println("Zone updated successfully")
			pterm.DefaultTable.WithData(ZoneTableData(zoneID, zoneMap)).Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Operating mode (adaptive, night, manual)")
	cmd.Flags().Float64P("brightness", "b", 0, "Brightness override, 0 to 1")
	cmd.Flags().Float64P("temperature", "t", 0, "Temperature override, 0 to 1")
	return cmd
}

// settingsFlags maps zone settings flags to their wire keys. Values are whole
// percentages, 0 to 100.
var settingsFlags = []struct {
	flag string
	key  string
	help string
}{
	{"sunset-temp", "sunset_temp", "Temperature at the sunset edge (percent)"},
	{"noon-temp", "noon_temp", "Temperature at solar noon (percent)"},
	{"min-brightness", "min_brightness", "Brightness at the sunset edge (percent)"},
	{"max-brightness", "max_brightness", "Brightness at solar noon (percent)"},
	{"night-temp", "night_temp", "Temperature in night mode (percent)"},
	{"night-brightness", "night_brightness", "Brightness in night mode (percent)"},
}

// newZoneSettingsCommand creates the zone settings command.
func newZoneSettingsCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings [id]",
		Short: "Update a zone's adaptive settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}

			var zoneID string
			if len(args) > 0 {
				zoneID = args[0]
			} else {
				zoneID, err = selectZone(c)
				if err != nil {
					return err
				}
			}

			// Start from the zone's current settings so flags only
			// override the fields the user names.
			current, err := c.GetZone(zoneID)
			if err != nil {
				return fmt.Errorf("failed to get zone: %w", err)
			}
			settings := map[string]any{}
			if name, ok := current["name"].(string); ok {
				settings["name"] = name
			}
			if cs, ok := current["settings"].(map[string]any); ok {
				for _, sf := range settingsFlags {
					if f, ok := cs[sf.key].(float64); ok {
						settings[sf.key] = int(f*100 + 0.5)
					}
				}
			}

			changed := false
			for _, sf := range settingsFlags {
				if cmd.Flags().Changed(sf.flag) {
					v, _ := cmd.Flags().GetInt(sf.flag)
					if v < 0 || v > 100 {
						return fmt.Errorf("%s must be between 0 and 100", sf.flag)
					}
					settings[sf.key] = v
					changed = true
				}
			}
			if !changed {
				return fmt.Errorf("nothing to update: pass at least one settings flag")
			}

			zoneMap, err := c.SetZoneSettings(zoneID, settings)
			if err != nil {
				return fmt.Errorf("failed to set zone settings: %w", err)
			}

			pterm.Success.Println("Zone settings updated successfully")
			pterm.DefaultTable.WithData(ZoneTableData(zoneID, zoneMap)).Render()
			return nil
		},
	}
	for _, sf := range settingsFlags {
		cmd.Flags().Int(sf.flag, 0, sf.help)
	}
	return cmd
}
