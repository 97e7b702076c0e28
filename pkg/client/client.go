// Package client implements the unix socket client used by circadianctl to
// talk to a running circadiand.
package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"github.com/jmylchreest/circadiand/internal/config"
)

var dial = net.Dial

// Interface defines the operations circadianctl performs against the daemon.
// It exists so command tests can substitute a mock.
type Interface interface {
	Ping() error
	GetVersion() (map[string]any, error)
	GetZones() (map[string]any, error)
	GetZone(id string) (map[string]any, error)
	SetZoneMode(id, mode string) (map[string]any, error)
	SetZoneState(id string, brightness, temperature *float64) (map[string]any, error)
	SetZoneSettings(id string, settings map[string]any) (map[string]any, error)
	GetPercentage() (float64, error)
	CreateAPIKey(name, expiresIn string) (map[string]any, error)
	ListAPIKeys() ([]any, error)
	DeleteAPIKey(key string) error
	SetAPIKeyDisabled(key string, disabled bool) (map[string]any, error)
	GetLogLevel() (string, error)
	SetLogLevel(level string) error
}

// Client is a unix socket connection factory to circadiand.
type Client struct {
	logger *slog.Logger
	socket string
}

// New creates a client. An empty socket path falls back to the runtime
// default location.
func New(logger *slog.Logger, socket string) *Client {
	if socket == "" {
		socket = config.GetRuntimeSocketPath()
		logger.Debug("Using default socket path", "socket", socket)
	} else {
		logger.Debug("Using provided socket path", "socket", socket)
	}
	return &Client{logger: logger, socket: socket}
}

// request performs one request/response exchange over a fresh connection.
func (c *Client) request(action string, data map[string]any) (map[string]any, error) {
	conn, err := dial("unix", c.socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket %s: %w", c.socket, err)
	}
	defer conn.Close()

	req := map[string]any{"action": action}
	if data != nil {
		req["data"] = data
	}
	c.logger.Debug("Sending request", "action", action)
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var resp map[string]any
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if msg, ok := resp["error"].(string); ok {
		return nil, fmt.Errorf("server error: %s", msg)
	}
	return resp, nil
}

// Ping checks daemon liveness.
func (c *Client) Ping() error {
	_, err := c.request("ping", nil)
	return err
}

// GetVersion returns the daemon's build information.
func (c *Client) GetVersion() (map[string]any, error) {
	return c.request("get_version", nil)
}

// GetZones returns all zones keyed by ID.
func (c *Client) GetZones() (map[string]any, error) {
	resp, err := c.request("list_zones", nil)
	if err != nil {
		return nil, err
	}
	zones, _ := resp["zones"].(map[string]any)
	return zones, nil
}

// GetZone returns one zone's state and settings.
func (c *Client) GetZone(id string) (map[string]any, error) {
	resp, err := c.request("get_zone", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	z, _ := resp["zone"].(map[string]any)
	return z, nil
}

// SetZoneMode switches a zone's operating mode and returns the new state.
func (c *Client) SetZoneMode(id, mode string) (map[string]any, error) {
	resp, err := c.request("set_zone_mode", map[string]any{"id": id, "mode": mode})
	if err != nil {
		return nil, err
	}
	z, _ := resp["zone"].(map[string]any)
	return z, nil
}

// SetZoneState applies manual value overrides. Nil pointers leave the axis
// untouched.
func (c *Client) SetZoneState(id string, brightness, temperature *float64) (map[string]any, error) {
	data := map[string]any{"id": id}
	if brightness != nil {
		data["brightness"] = *brightness
	}
	if temperature != nil {
		data["temperature"] = *temperature
	}
	resp, err := c.request("set_zone_state", data)
	if err != nil {
		return nil, err
	}
	z, _ := resp["zone"].(map[string]any)
	return z, nil
}

// SetZoneSettings replaces a zone's tuning targets (whole percent values).
func (c *Client) SetZoneSettings(id string, settings map[string]any) (map[string]any, error) {
	data := map[string]any{"id": id}
	for k, v := range settings {
		data[k] = v
	}
	resp, err := c.request("set_zone_settings", data)
	if err != nil {
		return nil, err
	}
	z, _ := resp["zone"].(map[string]any)
	return z, nil
}

// GetPercentage returns the current day-cycle percentage.
func (c *Client) GetPercentage() (float64, error) {
	resp, err := c.request("get_percentage", nil)
	if err != nil {
		return 0, err
	}
	pct, _ := resp["percentage"].(float64)
	return pct, nil
}

// CreateAPIKey creates a named API key. expiresIn is a duration string or
// empty for no expiry.
func (c *Client) CreateAPIKey(name, expiresIn string) (map[string]any, error) {
	data := map[string]any{"name": name}
	if expiresIn != "" {
		data["expires_in"] = expiresIn
	}
	resp, err := c.request("apikey_create", data)
	if err != nil {
		return nil, err
	}
	k, _ := resp["apikey"].(map[string]any)
	return k, nil
}

// ListAPIKeys returns all stored API keys.
func (c *Client) ListAPIKeys() ([]any, error) {
	resp, err := c.request("apikey_list", nil)
	if err != nil {
		return nil, err
	}
	keys, _ := resp["apikeys"].([]any)
	return keys, nil
}

// DeleteAPIKey removes an API key by key string or ID.
func (c *Client) DeleteAPIKey(key string) error {
	_, err := c.request("apikey_delete", map[string]any{"key": key})
	return err
}

// SetAPIKeyDisabled flips an API key's disabled flag.
func (c *Client) SetAPIKeyDisabled(key string, disabled bool) (map[string]any, error) {
	resp, err := c.request("apikey_set_disabled", map[string]any{"key": key, "disabled": disabled})
	if err != nil {
		return nil, err
	}
	k, _ := resp["apikey"].(map[string]any)
	return k, nil
}

// GetLogLevel returns the daemon's current log level.
func (c *Client) GetLogLevel() (string, error) {
	resp, err := c.request("get_log_level", nil)
	if err != nil {
		return "", err
	}
	level, _ := resp["level"].(string)
	return level, nil
}

// SetLogLevel changes the daemon's log level at runtime.
func (c *Client) SetLogLevel(level string) error {
	_, err := c.request("set_log_level", map[string]any{"level": level})
	return err
}

var _ Interface = (*Client)(nil)
