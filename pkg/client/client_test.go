package client

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer
	closed   bool
}

func (m *mockConn) Read(b []byte) (int, error)       { return m.readBuf.Read(b) }
func (m *mockConn) Write(b []byte) (int, error)      { return m.writeBuf.Write(b) }
func (m *mockConn) Close() error                     { m.closed = true; return nil }
func (m *mockConn) LocalAddr() net.Addr              { return nil }
func (m *mockConn) RemoteAddr() net.Addr             { return nil }
func (m *mockConn) SetDeadline(time.Time) error      { return nil }
func (m *mockConn) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(time.Time) error { return nil }

// withResponse installs a dialer returning a connection preloaded with the
// given server response, and restores the real dialer afterwards.
func withResponse(t *testing.T, resp map[string]any) *mockConn {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buf).Encode(resp))
	conn := &mockConn{readBuf: buf, writeBuf: &bytes.Buffer{}}

	oldDial := dial
	dial = func(network, address string) (net.Conn, error) { return conn, nil }
	t.Cleanup(func() { dial = oldDial })
	return conn
}

func sentRequest(t *testing.T, conn *mockConn) map[string]any {
	t.Helper()
	var req map[string]any
	require.NoError(t, json.Unmarshal(conn.writeBuf.Bytes(), &req))
	return req
}

func testClient() *Client {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), "/tmp/fake.sock")
}

func TestClientPing(t *testing.T) {
	conn := withResponse(t, map[string]any{"status": "ok", "message": "pong"})
	require.NoError(t, testClient().Ping())
	assert.Equal(t, "ping", sentRequest(t, conn)["action"])
	assert.True(t, conn.closed)
}

func TestClientGetZones(t *testing.T) {
	withResponse(t, map[string]any{
		"status": "ok",
		"zones": map[string]any{
			"office": map[string]any{"mode": "adaptive", "brightness": 0.55},
		},
	})

	zones, err := testClient().GetZones()
	require.NoError(t, err)
	require.Contains(t, zones, "office")
	z := zones["office"].(map[string]any)
	assert.Equal(t, "adaptive", z["mode"])
}

func TestClientSetZoneMode(t *testing.T) {
	conn := withResponse(t, map[string]any{
		"status": "ok",
		"zone":   map[string]any{"id": "office", "mode": "night"},
	})

	z, err := testClient().SetZoneMode("office", "night")
	require.NoError(t, err)
	assert.Equal(t, "night", z["mode"])

	req := sentRequest(t, conn)
	assert.Equal(t, "set_zone_mode", req["action"])
	data := req["data"].(map[string]any)
	assert.Equal(t, "office", data["id"])
	assert.Equal(t, "night", data["mode"])
}

func TestClientSetZoneStateOmitsNilAxes(t *testing.T) {
	conn := withResponse(t, map[string]any{
		"status": "ok",
		"zone":   map[string]any{"id": "office", "mode": "manual", "brightness": 0.33},
	})

	b := 0.33
	_, err := testClient().SetZoneState("office", &b, nil)
	require.NoError(t, err)

	data := sentRequest(t, conn)["data"].(map[string]any)
	assert.Equal(t, 0.33, data["brightness"])
	_, hasTemp := data["temperature"]
	assert.False(t, hasTemp, "nil axis must not be sent")
}

func TestClientGetPercentage(t *testing.T) {
	withResponse(t, map[string]any{"status": "ok", "percentage": 0.42})
	pct, err := testClient().GetPercentage()
	require.NoError(t, err)
	assert.Equal(t, 0.42, pct)
}

func TestClientServerError(t *testing.T) {
	withResponse(t, map[string]any{"error": "zone garage not found"})
	_, err := testClient().GetZone("garage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zone garage not found")
}

func TestClientAPIKeys(t *testing.T) {
	conn := withResponse(t, map[string]any{
		"status": "ok",
		"apikey": map[string]any{"name": "cli", "key": "abcd1234"},
	})

	key, err := testClient().CreateAPIKey("cli", "720h")
	require.NoError(t, err)
	assert.Equal(t, "abcd1234", key["key"])

	data := sentRequest(t, conn)["data"].(map[string]any)
	assert.Equal(t, "720h", data["expires_in"])

	withResponse(t, map[string]any{"status": "ok", "apikeys": []any{key}})
	keys, err := testClient().ListAPIKeys()
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	withResponse(t, map[string]any{"status": "ok"})
	require.NoError(t, testClient().DeleteAPIKey("abcd1234"))
}

func TestClientLogLevel(t *testing.T) {
	withResponse(t, map[string]any{"status": "ok", "level": "debug"})
	level, err := testClient().GetLogLevel()
	require.NoError(t, err)
	assert.Equal(t, "debug", level)

	withResponse(t, map[string]any{"error": "unknown log level"})
	assert.Error(t, testClient().SetLogLevel("verbose"))
}
