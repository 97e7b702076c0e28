// Package circadian produces the day-cycle percentage that drives adaptive
// zones: 0 at the sunset/sunrise edge (and all night), rising linearly to 1
// at solar noon.
package circadian

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// sunTimesMaxAge bounds how long cached sunrise/sunset times are reused
// before recomputing for the current date.
const sunTimesMaxAge = 6 * time.Hour

// SolarClock derives the percentage from the sun's position at a fixed
// location. Solar noon is taken as the midpoint of sunrise and sunset.
type SolarClock struct {
	latitude  float64
	longitude float64
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	sunrise    time.Time
	sunset     time.Time
	lastUpdate time.Time
}

// NewSolarClock creates a clock for the given coordinates.
func NewSolarClock(latitude, longitude float64, logger *slog.Logger) *SolarClock {
	return &SolarClock{
		latitude:  latitude,
		longitude: longitude,
		logger:    logger,
		now:       time.Now,
	}
}

// Percentage returns the current day-cycle progress in [0,1]. Outside the
// sunrise-sunset window it is 0; between the edges it rises linearly to 1 at
// solar noon and falls back to 0 at sunset.
func (c *SolarClock) Percentage() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.refreshSunTimes(now)

	if !now.After(c.sunrise) || !now.Before(c.sunset) {
		return 0
	}

	noon := c.sunrise.Add(c.sunset.Sub(c.sunrise) / 2)
	if now.Before(noon) {
		return now.Sub(c.sunrise).Seconds() / noon.Sub(c.sunrise).Seconds()
	}
	return c.sunset.Sub(now).Seconds() / c.sunset.Sub(noon).Seconds()
}

func (c *SolarClock) refreshSunTimes(now time.Time) {
	if !c.lastUpdate.IsZero() &&
		now.Sub(c.lastUpdate) < sunTimesMaxAge &&
		now.YearDay() == c.lastUpdate.YearDay() {
		return
	}

	rise, set := sunrise.SunriseSunset(c.latitude, c.longitude, now.Year(), now.Month(), now.Day())
	c.sunrise = rise
	c.sunset = set
	c.lastUpdate = now

	if c.logger != nil {
		c.logger.Info("circadian: sun times updated",
			"sunrise", rise.Format(time.RFC3339),
			"sunset", set.Format(time.RFC3339),
		)
	}
}

// Fixed is a constant percentage source, used when cycle.fixed_percentage is
// configured and in test rigs.
type Fixed float64

// Percentage returns the fixed value.
func (f Fixed) Percentage() float64 { return float64(f) }
