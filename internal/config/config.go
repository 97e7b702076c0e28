// Package config loads the circadiand configuration file and owns the
// persisted runtime state (zone modes, capability values, API keys). The
// state lives in the same YAML file under the "state" key and is written
// back through Save after every mutation.
package config

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// FileConfig is the static part of the configuration.
type FileConfig struct {
	Server   ServerConfig            `mapstructure:"server"`
	API      APIConfig               `mapstructure:"api"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Location LocationConfig          `mapstructure:"location"`
	Cycle    CycleConfig             `mapstructure:"cycle"`
	Zones    map[string]ZoneSettings `mapstructure:"zones"`
}

// ServerConfig represents the socket server configuration
type ServerConfig struct {
	UnixSocket string `mapstructure:"unix_socket"`
}

// APIConfig represents the HTTP API configuration
type APIConfig struct {
	ListenAddress     string `mapstructure:"listen_address"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LocationConfig holds the coordinates used by the solar day-cycle clock.
type LocationConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

// CycleConfig controls the percentage scheduler. FixedPercentage, when set,
// replaces the solar clock with a constant value (useful for testing rigs).
type CycleConfig struct {
	UpdateInterval  int      `mapstructure:"update_interval"` // seconds
	FixedPercentage *float64 `mapstructure:"fixed_percentage"`
}

// ZoneSettings are the per-zone tuning targets as configured by the user,
// in whole percentage points (0-100). The zone package converts them to
// fractions on load.
type ZoneSettings struct {
	Name            string `mapstructure:"name"`
	SunsetTemp      int    `mapstructure:"sunset_temp"`
	NoonTemp        int    `mapstructure:"noon_temp"`
	MinBrightness   int    `mapstructure:"min_brightness"`
	MaxBrightness   int    `mapstructure:"max_brightness"`
	NightTemp       int    `mapstructure:"night_temp"`
	NightBrightness int    `mapstructure:"night_brightness"`
}

// State is the persisted runtime state.
type State struct {
	Zones   map[string]ZoneState `mapstructure:"zones"`
	APIKeys []APIKey             `mapstructure:"apikeys"`
}

// ZoneState mirrors a zone's capability values. The value fields are
// pointers so an axis that was never written stays distinguishable from a
// persisted zero: a mode switch persists only the mode key, and restore must
// not treat the other axes as present.
type ZoneState struct {
	Mode             string   `mapstructure:"mode"`
	Dim              *float64 `mapstructure:"dim"`
	LightTemperature *float64 `mapstructure:"light_temperature"`
}

// APIKey represents a stored API key.
type APIKey struct {
	ID         string    `mapstructure:"id" json:"id"`
	Key        string    `mapstructure:"key" json:"key"`
	Name       string    `mapstructure:"name" json:"name"`
	CreatedAt  time.Time `mapstructure:"created_at" json:"created_at"`
	ExpiresAt  time.Time `mapstructure:"expires_at" json:"expires_at"`
	LastUsedAt time.Time `mapstructure:"last_used_at" json:"last_used_at"`
	Disabled   bool      `mapstructure:"disabled" json:"disabled"`
}

// IsExpired returns true if the key has an expiry in the past.
func (k *APIKey) IsExpired() bool {
	return !k.ExpiresAt.IsZero() && time.Now().After(k.ExpiresAt)
}

// IsDisabled returns true if the key has been disabled.
func (k *APIKey) IsDisabled() bool {
	return k.Disabled
}

// Config wraps the file configuration and the persisted state.
// All mutations and Save calls are serialized by an internal mutex.
type Config struct {
	Config FileConfig
	State  State

	v  *viper.Viper
	mu sync.Mutex
}

// Load loads configuration from a file and environment variables.
// configFile, when non-empty, overrides the default XDG location.
func Load(configName, configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set default values
	v.SetDefault("server.unix_socket", GetRuntimeSocketPath())
	v.SetDefault("api.listen_address", DefaultAPIListenAddress)
	v.SetDefault("api.requests_per_minute", 120)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("location.latitude", 51.4769) // Greenwich
	v.SetDefault("location.longitude", 0.0)
	v.SetDefault("cycle.update_interval", int(DefaultUpdateInterval.Seconds()))

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		configPath := GetConfigPath(configName)
		v.SetConfigFile(configPath)

		// Create config directory if it doesn't exist
		if err := os.MkdirAll(GetConfigBaseDir(), 0755); err != nil {
			return nil, fmt.Errorf("error creating config directory: %w", err)
		}
	}

	// Read config file - Viper will use defaults if file not found
	v.ReadInConfig()

	// Bind environment variables
	v.SetEnvPrefix("CIRCADIAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{v: v}
	if err := cfg.decode(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode unmarshals the current viper contents into the Config.
func (c *Config) decode() error {
	var file struct {
		FileConfig `mapstructure:",squash"`
		State      State `mapstructure:"state"`
	}
	if err := c.v.Unmarshal(&file, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	c.Config = file.FileConfig
	c.State = file.State
	if c.State.Zones == nil {
		c.State.Zones = make(map[string]ZoneState)
	}
	return nil
}

// ConfigFileUsed returns the path of the loaded configuration file.
func (c *Config) ConfigFileUsed() string { return c.v.ConfigFileUsed() }

// Save writes the persisted state back to the config file.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Config) saveLocked() error {
	// Only state.* keys are written through Set; static configuration keeps
	// whatever the file and defaults provide.
	zones := make(map[string]any, len(c.State.Zones))
	for id, zs := range c.State.Zones {
		entry := map[string]any{KeyMode: zs.Mode}
		if zs.Dim != nil {
			entry[KeyDim] = *zs.Dim
		}
		if zs.LightTemperature != nil {
			entry[KeyTemperature] = *zs.LightTemperature
		}
		zones[id] = entry
	}
	keys := make([]map[string]any, 0, len(c.State.APIKeys))
	for _, k := range c.State.APIKeys {
		keys = append(keys, map[string]any{
			"id":           k.ID,
			"key":          k.Key,
			"name":         k.Name,
			"created_at":   k.CreatedAt.Format(time.RFC3339),
			"expires_at":   k.ExpiresAt.Format(time.RFC3339),
			"last_used_at": k.LastUsedAt.Format(time.RFC3339),
			"disabled":     k.Disabled,
		})
	}
	c.v.Set("state.zones", zones)
	c.v.Set("state.apikeys", keys)

	if err := c.v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Watch re-reads the file on change and invokes onSettingsChanged when the
// zones section actually differs. Our own Save calls also touch the file;
// comparing the zones map filters those out.
func (c *Config) Watch(logger *slog.Logger, onSettingsChanged func(old, new map[string]ZoneSettings)) {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.mu.Lock()
		old := c.Config.Zones
		if err := c.v.ReadInConfig(); err != nil {
			c.mu.Unlock()
			logger.Error("failed to re-read config file", "error", err, "file", e.Name)
			return
		}
		if err := c.decode(); err != nil {
			c.mu.Unlock()
			logger.Error("failed to decode config file", "error", err, "file", e.Name)
			return
		}
		changed := !zoneSettingsEqual(old, c.Config.Zones)
		updated := c.Config.Zones
		c.mu.Unlock()

		if changed {
			logger.Info("zone settings changed on disk", "file", e.Name)
			onSettingsChanged(old, updated)
		}
	})
	c.v.WatchConfig()
}

func zoneSettingsEqual(a, b map[string]ZoneSettings) bool {
	if len(a) != len(b) {
		return false
	}
	for id, za := range a {
		if zb, ok := b[id]; !ok || za != zb {
			return false
		}
	}
	return true
}

// ZoneSettingsSnapshot returns a copy of the configured zone settings.
func (c *Config) ZoneSettingsSnapshot() map[string]ZoneSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]ZoneSettings, len(c.Config.Zones))
	for id, zs := range c.Config.Zones {
		out[id] = zs
	}
	return out
}

// SetZoneSettings replaces a zone's configured settings and persists them.
func (c *Config) SetZoneSettings(zoneID string, zs ZoneSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Config.Zones == nil {
		c.Config.Zones = make(map[string]ZoneSettings)
	}
	c.Config.Zones[zoneID] = zs
	c.v.Set("zones."+zoneID, map[string]any{
		"name":             zs.Name,
		"sunset_temp":      zs.SunsetTemp,
		"noon_temp":        zs.NoonTemp,
		"min_brightness":   zs.MinBrightness,
		"max_brightness":   zs.MaxBrightness,
		"night_temp":       zs.NightTemp,
		"night_brightness": zs.NightBrightness,
	})
	return c.saveLocked()
}

// ZoneValue reads a persisted capability value for a zone.
func (c *Config) ZoneValue(zoneID, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	zs, ok := c.State.Zones[zoneID]
	if !ok {
		return nil, false
	}
	switch key {
	case KeyMode:
		if zs.Mode == "" {
			return nil, false
		}
		return zs.Mode, true
	case KeyDim:
		if zs.Dim == nil {
			return nil, false
		}
		return *zs.Dim, true
	case KeyTemperature:
		if zs.LightTemperature == nil {
			return nil, false
		}
		return *zs.LightTemperature, true
	default:
		return nil, false
	}
}

// SetZoneValue writes a persisted capability value for a zone and saves.
func (c *Config) SetZoneValue(zoneID, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	zs := c.State.Zones[zoneID]
	switch key {
	case KeyMode:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("mode value must be a string, got %T", value)
		}
		zs.Mode = s
	case KeyDim, KeyTemperature:
		f, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%s value must be a float64, got %T", key, value)
		}
		if key == KeyDim {
			zs.Dim = &f
		} else {
			zs.LightTemperature = &f
		}
	default:
		return fmt.Errorf("unknown capability key %q", key)
	}
	c.State.Zones[zoneID] = zs
	return c.saveLocked()
}

// --- API keys ---

// GenerateKey generates a random key string of the given length.
func GenerateKey(length int) (string, error) {
	if length <= 0 {
		length = DefaultKeyLength
	}
	b := make([]byte, length)
	max := big.NewInt(int64(len(DefaultKeyCharset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("error generating random key: %w", err)
		}
		b[i] = DefaultKeyCharset[n.Int64()]
	}
	return string(b), nil
}

// GetAPIKeys returns a copy of all stored API keys.
func (c *Config) GetAPIKeys() []APIKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]APIKey, len(c.State.APIKeys))
	copy(keys, c.State.APIKeys)
	return keys
}

// AddAPIKey appends a new API key to the state. The caller must Save.
func (c *Config) AddAPIKey(key APIKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.State.APIKeys {
		if existing.Key == key.Key {
			return fmt.Errorf("API key already exists")
		}
	}
	c.State.APIKeys = append(c.State.APIKeys, key)
	return nil
}

// DeleteAPIKey removes an API key by key string or ID. Returns true if removed.
func (c *Config) DeleteAPIKey(keyOrID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, k := range c.State.APIKeys {
		if k.Key == keyOrID || k.ID == keyOrID {
			c.State.APIKeys = append(c.State.APIKeys[:i], c.State.APIKeys[i+1:]...)
			return true
		}
	}
	return false
}

// FindAPIKey returns the API key matching the given key string.
func (c *Config) FindAPIKey(key string) (*APIKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.State.APIKeys {
		if c.State.APIKeys[i].Key == key {
			k := c.State.APIKeys[i]
			return &k, true
		}
	}
	return nil, false
}

// UpdateAPIKeyLastUsed sets the LastUsedAt timestamp for a key.
func (c *Config) UpdateAPIKeyLastUsed(key string, t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.State.APIKeys {
		if c.State.APIKeys[i].Key == key {
			c.State.APIKeys[i].LastUsedAt = t
			return nil
		}
	}
	return fmt.Errorf("API key not found")
}

// SetAPIKeyDisabledStatus updates the disabled flag of a key matched by key
// string, ID, or name.
func (c *Config) SetAPIKeyDisabledStatus(keyOrName string, disabled bool) (*APIKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.State.APIKeys {
		k := &c.State.APIKeys[i]
		if k.Key == keyOrName || k.ID == keyOrName || k.Name == keyOrName {
			k.Disabled = disabled
			out := *k
			return &out, nil
		}
	}
	return nil, fmt.Errorf("API key '%s' not found", keyOrName)
}
