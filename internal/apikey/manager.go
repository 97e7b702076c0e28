// Package apikey implements API key lifecycle management on top of the
// persisted daemon state. All mutations go through config.Config, which
// carries its own mutex; this manager adds no locking of its own. Returned
// *config.APIKey pointers are copies and safe to hand to callers.
package apikey

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/circadiand/internal/config"
	"github.com/jmylchreest/circadiand/internal/errors"
)

// Manager handles API key creation, validation, and revocation.
type Manager struct {
	cfg *config.Config
	log *slog.Logger
}

// NewManager creates a manager over the persisted key set.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	m := &Manager{cfg: cfg, log: logger}
	logger.Info("apikey: loaded keys from state", "count", len(cfg.GetAPIKeys()))
	return m
}

// CreateAPIKey generates a new key, stores it, and persists the state.
// Names must be unique. A zero expiresIn means the key never expires.
func (m *Manager) CreateAPIKey(name string, expiresIn time.Duration) (*config.APIKey, error) {
	for _, existing := range m.cfg.GetAPIKeys() {
		if existing.Name == name {
			return nil, errors.InvalidInputf("API key with name %q already exists", name)
		}
	}

	keyString, err := config.GenerateKey(config.DefaultKeyLength)
	if err != nil {
		return nil, errors.Internalf("generating key: %v", err)
	}

	newKey := config.APIKey{
		ID:        uuid.NewString(),
		Key:       keyString,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if expiresIn > 0 {
		newKey.ExpiresAt = newKey.CreatedAt.Add(expiresIn)
	}

	if err := m.cfg.AddAPIKey(newKey); err != nil {
		return nil, errors.InvalidInputf("adding API key: %v", err)
	}
	if err := m.cfg.Save(); err != nil {
		return nil, errors.Persistencef("API key added to memory but not saved: %v", err)
	}

	m.log.Info("apikey: created", "name", name, "id", newKey.ID, "key_prefix", newKey.Key[:4])
	return &newKey, nil
}

// ListAPIKeys returns all stored keys.
func (m *Manager) ListAPIKeys() []config.APIKey {
	return m.cfg.GetAPIKeys()
}

// DeleteAPIKey removes a key by key string or ID and persists the state.
func (m *Manager) DeleteAPIKey(keyOrID string) error {
	if !m.cfg.DeleteAPIKey(keyOrID) {
		return errors.NotFoundf("API key %q", keyOrID)
	}
	if err := m.cfg.Save(); err != nil {
		return errors.Persistencef("API key deleted from memory but not saved: %v", err)
	}
	m.log.Info("apikey: deleted", "key_or_id", keyOrID)
	return nil
}

// ValidateAPIKey checks that a key exists, is enabled, and has not expired.
// On success the key's LastUsedAt is updated and saved best-effort; a failed
// save never fails the validation.
func (m *Manager) ValidateAPIKey(key string) (*config.APIKey, error) {
	apiKey, found := m.cfg.FindAPIKey(key)
	if !found {
		return nil, errors.NotFoundf("API key")
	}
	if apiKey.IsDisabled() {
		return nil, errors.InvalidInputf("API key is disabled")
	}
	if apiKey.IsExpired() {
		return nil, errors.InvalidInputf("API key has expired")
	}

	if err := m.cfg.UpdateAPIKeyLastUsed(key, time.Now().UTC()); err != nil {
		m.log.Error("apikey: updating last-used timestamp", "error", err)
		return apiKey, nil
	}
	if err := m.cfg.Save(); err != nil {
		m.log.Error("apikey: saving last-used timestamp", "error", err)
	}
	return apiKey, nil
}

// SetAPIKeyDisabledStatus flips a key's disabled flag (matched by key string,
// ID, or name) and persists the state.
func (m *Manager) SetAPIKeyDisabledStatus(keyOrName string, disabled bool) (*config.APIKey, error) {
	updated, err := m.cfg.SetAPIKeyDisabledStatus(keyOrName, disabled)
	if err != nil {
		return nil, errors.NotFoundf("API key %q", keyOrName)
	}
	if err := m.cfg.Save(); err != nil {
		return nil, errors.Persistencef("API key status updated in memory but not saved: %v", err)
	}
	m.log.Info("apikey: disabled status changed", "key_or_name", keyOrName, "disabled", disabled)
	return updated, nil
}
