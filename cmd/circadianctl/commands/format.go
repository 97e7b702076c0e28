package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// ZoneTableData returns the table data for a zone, with bold ID and name.
func ZoneTableData(id string, zone map[string]any) pterm.TableData {
	table := pterm.TableData{
		[]string{pterm.Bold.Sprint("ID"), pterm.Bold.Sprint(id)},
		[]string{"Name", fmt.Sprintf("%v", zone["name"])},
		[]string{"Mode", fmt.Sprintf("%v", zone["mode"])},
		[]string{"Brightness", formatFraction(zone["brightness"])},
		[]string{"Temperature", formatFraction(zone["temperature"])},
	}
	if settings, ok := zone["settings"].(map[string]any); ok {
		table = append(table,
			[]string{"Sunset Temp", formatFraction(settings["sunset_temp"])},
			[]string{"Noon Temp", formatFraction(settings["noon_temp"])},
			[]string{"Min Brightness", formatFraction(settings["min_brightness"])},
			[]string{"Max Brightness", formatFraction(settings["max_brightness"])},
			[]string{"Night Temp", formatFraction(settings["night_temp"])},
			[]string{"Night Brightness", formatFraction(settings["night_brightness"])},
		)
	}
	return table
}

// formatFraction renders a [0,1] fraction as a percentage for display.
func formatFraction(v any) string {
	f, ok := v.(float64)
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%", f*100)
}

// orderedSettingsKeys defines the order of settings in parseable output.
var orderedSettingsKeys = []string{
	"sunset_temp",
	"noon_temp",
	"min_brightness",
	"max_brightness",
	"night_temp",
	"night_brightness",
}

// ZoneParseable returns the parseable key=value string for a zone.
func ZoneParseable(id string, zone map[string]any) string {
	parts := []string{
		fmt.Sprintf("id=%q", id),
		fmt.Sprintf("name=%q", zone["name"]),
		fmt.Sprintf("mode=%v", zone["mode"]),
		fmt.Sprintf("brightness=%v", zone["brightness"]),
		fmt.Sprintf("temperature=%v", zone["temperature"]),
	}
	if settings, ok := zone["settings"].(map[string]any); ok {
		for _, key := range orderedSettingsKeys {
			if val, ok := settings[key]; ok {
				parts = append(parts, fmt.Sprintf("%s=%v", key, val))
			}
		}
	}
	return strings.Join(parts, " ")
}
