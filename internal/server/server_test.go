package server

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/circadiand/internal/circadian"
	"github.com/jmylchreest/circadiand/internal/config"
	"github.com/jmylchreest/circadiand/internal/events"
	"github.com/jmylchreest/circadiand/internal/zone"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// startTestServer runs a server on a temp unix socket with one "office"
// zone at percentage 0.5 and the HTTP API disabled.
func startTestServer(t *testing.T) (*Server, net.Conn) {
	t.Helper()
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "circadiand.sock")

	doc := map[string]any{
		"server": map[string]any{"unix_socket": socketPath},
		"api":    map[string]any{"listen_address": ""},
		"zones": map[string]any{
			"office": map[string]any{
				"name":             "Office",
				"sunset_temp":      100,
				"noon_temp":        40,
				"min_brightness":   10,
				"max_brightness":   100,
				"night_temp":       100,
				"night_brightness": 10,
			},
		},
	}
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	cfgPath := filepath.Join(dir, config.DaemonConfigFilename)
	require.NoError(t, os.WriteFile(cfgPath, data, 0644))

	cfg, err := config.Load(config.DaemonConfigFilename, cfgPath)
	require.NoError(t, err)

	logger := testLogger()
	bus := events.NewBus()
	source := circadian.Fixed(0.5)
	zones := zone.NewManager(logger, cfg, bus, source)

	srv := New(logger, cfg, zones, source, bus, BuildInfo{Version: "test", Commit: "none", BuildDate: "unknown"})
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return srv, conn
}

func roundTrip(t *testing.T, conn net.Conn, req map[string]any) map[string]any {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	payload = append(payload, '\n')
	_, err = conn.Write(payload)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(line, &resp))
	return resp
}

func TestServerPing(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "ping", "id": "req-1"})
	assert.Equal(t, "pong", resp["message"])
	assert.Equal(t, "req-1", resp["id"])
}

func TestServerGetVersion(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "get_version"})
	assert.Equal(t, "test", resp["version"])
}

func TestServerListAndGetZone(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "list_zones"})
	zones, ok := resp["zones"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, zones, "office")

	resp = roundTrip(t, conn, map[string]any{
		"action": "get_zone",
		"data":   map[string]any{"id": "office"},
	})
	z, ok := resp["zone"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "adaptive", z["mode"])
	assert.Equal(t, 0.55, z["brightness"])
	assert.Equal(t, 0.70, z["temperature"])
}

func TestServerSetZoneMode(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{
		"action": "set_zone_mode",
		"data":   map[string]any{"id": "office", "mode": "night"},
	})
	z, ok := resp["zone"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "night", z["mode"])
	assert.Equal(t, 0.10, z["brightness"])
	assert.Equal(t, 1.00, z["temperature"])

	resp = roundTrip(t, conn, map[string]any{
		"action": "set_zone_mode",
		"data":   map[string]any{"id": "office", "mode": "party"},
	})
	assert.Contains(t, resp["error"], "unknown mode")
}

func TestServerSetZoneState(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{
		"action": "set_zone_state",
		"data":   map[string]any{"id": "office", "brightness": 0.33},
	})
	z, ok := resp["zone"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "manual", z["mode"], "override switches to manual")
	assert.Equal(t, 0.33, z["brightness"])
	assert.Equal(t, 0.70, z["temperature"])

	resp = roundTrip(t, conn, map[string]any{
		"action": "set_zone_state",
		"data":   map[string]any{"id": "office"},
	})
	assert.Contains(t, resp["error"], "missing brightness/temperature")
}

func TestServerSetZoneSettings(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{
		"action": "set_zone_settings",
		"data": map[string]any{
			"id": "office", "name": "Office",
			"sunset_temp": 90, "noon_temp": 30,
			"min_brightness": 20, "max_brightness": 80,
			"night_temp": 90, "night_brightness": 5,
		},
	})
	z, ok := resp["zone"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.50, z["brightness"], "recomputed against new targets")

	// sunset at or below noon is rejected
	resp = roundTrip(t, conn, map[string]any{
		"action": "set_zone_settings",
		"data": map[string]any{
			"id": "office",
			"sunset_temp": 30, "noon_temp": 90,
			"min_brightness": 10, "max_brightness": 100,
		},
	})
	assert.Contains(t, resp["error"], "sunset temperature")
}

func TestServerGetPercentage(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "get_percentage"})
	assert.Equal(t, 0.5, resp["percentage"])
}

func TestServerAPIKeyActions(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{
		"action": "apikey_create",
		"data":   map[string]any{"name": "cli"},
	})
	created, ok := resp["apikey"].(map[string]any)
	require.True(t, ok)
	key, _ := created["key"].(string)
	require.NotEmpty(t, key)

	resp = roundTrip(t, conn, map[string]any{"action": "apikey_list"})
	keys, ok := resp["apikeys"].([]any)
	require.True(t, ok)
	assert.Len(t, keys, 1)

	resp = roundTrip(t, conn, map[string]any{
		"action": "apikey_set_disabled",
		"data":   map[string]any{"key": "cli", "disabled": true},
	})
	updated, ok := resp["apikey"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, updated["disabled"])

	resp = roundTrip(t, conn, map[string]any{
		"action": "apikey_delete",
		"data":   map[string]any{"key": key},
	})
	assert.Equal(t, "ok", resp["status"])
}

func TestServerUnknownAction(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "explode"})
	assert.Contains(t, resp["error"], "unknown action")
}
