package zone

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/circadiand/internal/config"
	"github.com/jmylchreest/circadiand/internal/errors"
	"github.com/jmylchreest/circadiand/internal/events"
)

// Controller owns the state of a single zone. All operations serialize on an
// internal mutex; in-memory state is always updated before the store write
// begins, so a concurrent read during an in-flight persist sees the new
// logical value.
type Controller struct {
	id     string
	name   string
	logger *slog.Logger
	store  Store
	bus    *events.Bus
	source PercentageProvider

	mu       sync.Mutex
	settings Settings
	state    State
}

// NewController builds a controller for one zone, restoring persisted
// capability values. A missing mode falls back to adaptive; missing values
// fall back to defaults for the restored mode.
func NewController(id, name string, logger *slog.Logger, store Store, bus *events.Bus, source PercentageProvider, settings Settings) *Controller {
	c := &Controller{
		id:       id,
		name:     name,
		logger:   logger,
		store:    store,
		bus:      bus,
		source:   source,
		settings: settings,
	}

	c.state = c.restoreState()
	logger.Info("zone: controller initialized",
		"zone", id,
		"mode", c.state.Mode,
		"brightness", c.state.Brightness,
		"temperature", c.state.Temperature,
	)
	return c
}

// restoreState loads persisted capability values. Axes never written fall
// back to defaults for the restored mode: night targets in night mode,
// values computed from the current percentage otherwise. No persistence or
// notification happens during restore.
func (c *Controller) restoreState() State {
	st := State{Mode: ModeAdaptive}
	if raw, ok := c.store.Get(c.id, config.KeyMode); ok {
		if s, ok := raw.(string); ok {
			if m, err := ParseMode(s); err == nil {
				st.Mode = m
			} else {
				c.logger.Warn("zone: ignoring persisted mode", "zone", c.id, "mode", s)
			}
		}
	}

	if st.Mode == ModeNight {
		st.Brightness = Round2(c.settings.NightBrightness)
		st.Temperature = Round2(c.settings.NightTemperature)
	} else {
		st.Brightness, st.Temperature = c.interpolate(c.source.Percentage())
	}

	if raw, ok := c.store.Get(c.id, config.KeyDim); ok {
		if f, ok := raw.(float64); ok {
			st.Brightness = Round2(f)
		}
	}
	if raw, ok := c.store.Get(c.id, config.KeyTemperature); ok {
		if f, ok := raw.(float64); ok {
			st.Temperature = Round2(f)
		}
	}
	return st
}

// ID returns the zone identifier.
func (c *Controller) ID() string { return c.id }

// Name returns the zone display name.
func (c *Controller) Name() string { return c.name }

// State returns a copy of the current zone state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Settings returns a copy of the active zone settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SetMode switches the zone's operating mode. Setting the already-active
// mode is a no-op. Switching to adaptive or night triggers an immediate
// recompute; switching to manual does not, manual values arrive separately
// through Override.
func (c *Controller) SetMode(m Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m == c.state.Mode {
		c.logger.Debug("zone: mode already active", "zone", c.id, "mode", m)
		return nil
	}

	c.state.Mode = m
	if err := c.store.Set(c.id, config.KeyMode, string(m)); err != nil {
		return errors.Persistencef("zone %s: persisting mode: %v", c.id, err)
	}
	c.publishMode()

	if m == ModeManual {
		return nil
	}
	return c.refreshLocked()
}

// Override applies a manual override for one or both axes. A nil pointer
// means the axis is left untouched. If any rounded value differs from the
// current state the zone transitions to manual mode and a single combined
// values-changed notification is emitted.
func (c *Controller) Override(brightness, temperature *float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	if brightness != nil {
		b := Round2(*brightness)
		if b != c.state.Brightness {
			c.state.Brightness = b
			changed = true
			if err := c.store.Set(c.id, config.KeyDim, b); err != nil {
				return errors.Persistencef("zone %s: persisting brightness: %v", c.id, err)
			}
		}
	}
	if temperature != nil {
		t := Round2(*temperature)
		if t != c.state.Temperature {
			c.state.Temperature = t
			changed = true
			if err := c.store.Set(c.id, config.KeyTemperature, t); err != nil {
				return errors.Persistencef("zone %s: persisting temperature: %v", c.id, err)
			}
		}
	}

	if !changed {
		c.logger.Debug("zone: override matches current values", "zone", c.id)
		return nil
	}

	if c.state.Mode != ModeManual {
		c.state.Mode = ModeManual
		if err := c.store.Set(c.id, config.KeyMode, string(ModeManual)); err != nil {
			return errors.Persistencef("zone %s: persisting mode: %v", c.id, err)
		}
		c.publishMode()
	}

	c.publishValues()
	return nil
}

// Refresh recomputes the zone's values for its current mode. Manual mode is
// a no-op: manual values stand until explicitly overridden.
func (c *Controller) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked()
}

func (c *Controller) refreshLocked() error {
	switch c.state.Mode {
	case ModeAdaptive:
		return c.applyPercentageLocked(c.source.Percentage())
	case ModeNight:
		return c.commitLocked(Round2(c.settings.NightBrightness), Round2(c.settings.NightTemperature))
	default:
		return nil
	}
}

// UpdateFromPercentage applies a day-cycle percentage push. Pushes arriving
// while the zone is not in adaptive mode are ignored: a mode switch can race
// a scheduled push, and late pushes must not disturb night or manual values.
// The caller is responsible for clamping pct to [0,1].
func (c *Controller) UpdateFromPercentage(pct float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode != ModeAdaptive {
		c.logger.Debug("zone: ignoring percentage push outside adaptive mode",
			"zone", c.id, "mode", c.state.Mode, "percentage", pct)
		return nil
	}
	return c.applyPercentageLocked(pct)
}

// interpolate derives both axes from a percentage. Temperature is warmest at
// pct=0 (sunset) and coolest at pct=1 (noon); brightness rises with pct.
// At pct == 0 exactly, both axes pin to their floor values.
func (c *Controller) interpolate(pct float64) (brightness, temperature float64) {
	brightness = c.settings.MinBrightness
	temperature = c.settings.SunsetTemperature
	if pct > 0 {
		brightness = c.settings.MinBrightness + (c.settings.MaxBrightness-c.settings.MinBrightness)*pct
		temperature = c.settings.NoonTemperature + (c.settings.SunsetTemperature-c.settings.NoonTemperature)*(1-pct)
	}
	return Round2(brightness), Round2(temperature)
}

func (c *Controller) applyPercentageLocked(pct float64) error {
	b, t := c.interpolate(pct)
	return c.commitLocked(b, t)
}

// commitLocked stores each axis that changed and emits one combined
// notification when anything did. Values must already be rounded.
func (c *Controller) commitLocked(brightness, temperature float64) error {
	changed := false
	if brightness != c.state.Brightness {
		c.state.Brightness = brightness
		changed = true
		if err := c.store.Set(c.id, config.KeyDim, brightness); err != nil {
			return errors.Persistencef("zone %s: persisting brightness: %v", c.id, err)
		}
	}
	if temperature != c.state.Temperature {
		c.state.Temperature = temperature
		changed = true
		if err := c.store.Set(c.id, config.KeyTemperature, temperature); err != nil {
			return errors.Persistencef("zone %s: persisting temperature: %v", c.id, err)
		}
	}
	if changed {
		c.publishValues()
	}
	return nil
}

// ApplySettings validates and replaces the zone's settings, then forces a
// recompute. Rejected settings leave state untouched. Settings only affect
// adaptive and night targets; a standing manual override is not disturbed.
func (c *Controller) ApplySettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
	c.publish(events.ZoneSettingsUpdated, events.ZoneSettingsPayload{Zone: c.id})
	return c.refreshLocked()
}

func (c *Controller) publishValues() {
	c.logger.Info("zone: values changed",
		"zone", c.id,
		"brightness", c.state.Brightness,
		"temperature", c.state.Temperature,
	)
	c.publish(events.ZoneValuesChanged, events.ZoneValuesPayload{
		Zone:        c.id,
		Brightness:  c.state.Brightness,
		Temperature: c.state.Temperature,
	})
}

func (c *Controller) publishMode() {
	c.logger.Info("zone: mode changed", "zone", c.id, "mode", c.state.Mode)
	c.publish(events.ZoneModeChanged, events.ZoneModePayload{
		Zone: c.id,
		Mode: string(c.state.Mode),
	})
}

func (c *Controller) publish(t events.EventType, data any) {
	if c.bus != nil {
		c.bus.Publish(events.NewEvent(t, data))
	}
}
