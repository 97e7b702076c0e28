package config

import "time"

// Common constants shared between daemon and client
const (
	// ConfigDirName is the name of the config directory within XDG_CONFIG_HOME
	ConfigDirName = "circadian"

	// DaemonConfigFilename is the base filename for daemon config
	DaemonConfigFilename = "circadiand.yaml"

	// ClientConfigFilename is the base filename for client config
	ClientConfigFilename = "circadianctl.yaml"

	// SocketFilename is the base filename for the Unix socket
	SocketFilename = "circadiand.sock"

	// DefaultKeyLength is the default length for generated API keys
	DefaultKeyLength = 32

	// DefaultKeyCharset is the characters used for API key generation
	DefaultKeyCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultAPIListenAddress is the default HTTP API listen address
	DefaultAPIListenAddress = ":9124"
)

// Default timeouts and intervals
const (
	// DefaultUpdateInterval is the default interval for recomputing the
	// day-cycle percentage and pushing it to zones
	DefaultUpdateInterval = 60 * time.Second

	// MinUpdateInterval is the minimum allowed update interval
	MinUpdateInterval = 5 * time.Second
)

// Persisted capability keys for a zone. Brightness and temperature are
// stored as fractions in [0,1]; mode as its string name.
const (
	KeyMode        = "mode"
	KeyDim         = "dim"
	KeyTemperature = "light_temperature"
)

// Zone settings bounds. Settings are written as whole percentage points
// (0-100) and converted to fractions on load.
const (
	MinSettingPercent = 0
	MaxSettingPercent = 100
)
