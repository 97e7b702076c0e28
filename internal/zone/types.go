// Package zone implements the per-zone lighting controller: the mode state
// machine, the day-cycle interpolation, and change detection for downstream
// automation triggers.
package zone

import (
	"math"

	"github.com/jmylchreest/circadiand/internal/config"
	"github.com/jmylchreest/circadiand/internal/errors"
)

// Mode is a zone's operating mode.
type Mode string

const (
	// ModeAdaptive tracks brightness/temperature from the day-cycle percentage.
	ModeAdaptive Mode = "adaptive"
	// ModeNight forces the configured night targets regardless of time.
	ModeNight Mode = "night"
	// ModeManual holds user-supplied values until the mode changes.
	ModeManual Mode = "manual"
)

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAdaptive, ModeNight, ModeManual:
		return Mode(s), nil
	default:
		return "", errors.InvalidInputf("unknown mode %q", s)
	}
}

// Settings are a zone's tuning targets as fractions in [0,1].
type Settings struct {
	SunsetTemperature float64
	NoonTemperature   float64
	MinBrightness     float64
	MaxBrightness     float64
	NightBrightness   float64
	NightTemperature  float64
}

// Validate rejects settings where the sunset temperature does not exceed the
// noon temperature. Other fields are accepted as-is; see the package tests
// for the pinned behaviour.
func (s Settings) Validate() error {
	if s.SunsetTemperature <= s.NoonTemperature {
		return errors.InvalidInputf("sunset temperature (%.2f) must be above noon temperature (%.2f)",
			s.SunsetTemperature, s.NoonTemperature)
	}
	return nil
}

// SettingsFromConfig converts configured whole-percent settings to fractions.
// Values are rounded before dividing so that e.g. 55 becomes exactly 0.55.
func SettingsFromConfig(zs config.ZoneSettings) Settings {
	return Settings{
		SunsetTemperature: percentToFraction(zs.SunsetTemp),
		NoonTemperature:   percentToFraction(zs.NoonTemp),
		MinBrightness:     percentToFraction(zs.MinBrightness),
		MaxBrightness:     percentToFraction(zs.MaxBrightness),
		NightBrightness:   percentToFraction(zs.NightBrightness),
		NightTemperature:  percentToFraction(zs.NightTemp),
	}
}

func percentToFraction(v int) float64 {
	return math.Round(float64(v)) / 100
}

// State is a zone's observable runtime state.
type State struct {
	Mode        Mode    `json:"mode"`
	Brightness  float64 `json:"brightness"`
	Temperature float64 `json:"temperature"`
}

// Round2 rounds to two decimal places, whole-percentage-point granularity.
// All stored values and change comparisons go through this.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Store persists a zone's capability values. Writes are expected to hit
// stable storage before returning; a failed write leaves the in-memory
// state ahead of the store until the next successful write.
type Store interface {
	Get(zoneID, key string) (any, bool)
	Set(zoneID, key string, value any) error
}

// PercentageProvider supplies the current day-cycle progress in [0,1]:
// 0 at the sunset/night edge, 1 at solar noon.
type PercentageProvider interface {
	Percentage() float64
}
