package zone

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/jmylchreest/circadiand/internal/config"
	"github.com/jmylchreest/circadiand/internal/errors"
	"github.com/jmylchreest/circadiand/internal/events"
)

// Manager holds the controllers for all configured zones and fans out
// day-cycle percentage pushes. Zones are independent; a push touches each
// zone's own state only, so the fan-out itself needs no coordination beyond
// the registry lock.
type Manager struct {
	logger *slog.Logger
	cfg    *config.Config
	bus    *events.Bus
	source PercentageProvider

	mu    sync.RWMutex
	zones map[string]*Controller
}

// NewManager builds controllers for every zone in the configuration.
// Zones whose configured settings fail validation are skipped with an error
// log rather than aborting the daemon.
func NewManager(logger *slog.Logger, cfg *config.Config, bus *events.Bus, source PercentageProvider) *Manager {
	m := &Manager{
		logger: logger,
		cfg:    cfg,
		bus:    bus,
		source: source,
		zones:  make(map[string]*Controller),
	}

	store := configStore{cfg: cfg}
	for id, zs := range cfg.ZoneSettingsSnapshot() {
		settings := SettingsFromConfig(zs)
		if err := settings.Validate(); err != nil {
			logger.Error("zone: skipping zone with invalid settings", "zone", id, "error", err)
			continue
		}
		name := zs.Name
		if name == "" {
			name = id
		}
		m.zones[id] = NewController(id, name, logger, store, bus, source, settings)
	}

	logger.Info("zone: manager initialized", "zones", len(m.zones))
	return m
}

// Zone returns the controller for a zone ID.
func (m *Manager) Zone(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.zones[id]
	if !ok {
		return nil, errors.NotFoundf("zone %s", id)
	}
	return c, nil
}

// Zones returns all controllers sorted by ID.
func (m *Manager) Zones() []*Controller {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Controller, 0, len(m.zones))
	for _, c := range m.zones {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// UpdateFromPercentage pushes a new day-cycle percentage to every zone.
// Controllers that are not in adaptive mode ignore the push themselves.
// Per-zone persistence failures are logged and do not stop the fan-out.
func (m *Manager) UpdateFromPercentage(pct float64) {
	if m.bus != nil {
		m.bus.Publish(events.NewEvent(events.PercentageUpdated, events.PercentagePayload{Percentage: pct}))
	}
	for _, c := range m.Zones() {
		if err := c.UpdateFromPercentage(pct); err != nil {
			m.logger.Error("zone: percentage update failed", "zone", c.ID(), "error", err)
		}
	}
}

// ApplySettings validates and applies new settings for one zone, persisting
// them to the configuration file on success. An empty Name keeps the zone's
// configured display name rather than erasing it on disk.
func (m *Manager) ApplySettings(id string, zs config.ZoneSettings) error {
	c, err := m.Zone(id)
	if err != nil {
		return err
	}

	if zs.Name == "" {
		if current, ok := m.cfg.ZoneSettingsSnapshot()[id]; ok {
			zs.Name = current.Name
		}
	}

	settings := SettingsFromConfig(zs)
	if err := c.ApplySettings(settings); err != nil {
		return err
	}
	if err := m.cfg.SetZoneSettings(id, zs); err != nil {
		return errors.LogErrorAndReturn(m.logger,
			errors.Persistencef("zone %s: saving settings: %v", id, err),
			"zone: saving settings failed", "zone", id)
	}
	return nil
}

// ReloadSettings applies configuration-file settings changes to running
// zones (the config watcher calls this). Invalid settings for a zone are
// rejected with a log; that zone keeps its previous settings. Zones added
// or removed on disk require a daemon restart and are logged as such.
func (m *Manager) ReloadSettings(updated map[string]config.ZoneSettings) {
	for _, c := range m.Zones() {
		zs, ok := updated[c.ID()]
		if !ok {
			m.logger.Warn("zone: removed from config file; restart required to drop it", "zone", c.ID())
			continue
		}
		if err := c.ApplySettings(SettingsFromConfig(zs)); err != nil {
			m.logger.Error("zone: rejecting settings update", "zone", c.ID(), "error", err)
		}
	}
	m.mu.RLock()
	known := len(m.zones)
	m.mu.RUnlock()
	if len(updated) > known {
		m.logger.Warn("zone: new zones in config file; restart required to pick them up")
	}
}

// configStore adapts config.Config to the Store interface.
type configStore struct {
	cfg *config.Config
}

func (s configStore) Get(zoneID, key string) (any, bool) {
	return s.cfg.ZoneValue(zoneID, key)
}

func (s configStore) Set(zoneID, key string, value any) error {
	return s.cfg.SetZoneValue(zoneID, key, value)
}
