package commands

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/circadiand/pkg/client"
)

// mockClient implements client.Interface with canned zone responses and call
// recording for the mutating methods.
type mockClient struct {
	client.Interface

	zones map[string]any

	modeCalls     []string
	stateBright   *float64
	stateTemp     *float64
	settingsCalls []map[string]any
}

func (m *mockClient) GetZones() (map[string]any, error) {
	return m.zones, nil
}

func (m *mockClient) GetZone(id string) (map[string]any, error) {
	z, ok := m.zones[id].(map[string]any)
	if !ok {
		return nil, assert.AnError
	}
	return z, nil
}

func (m *mockClient) SetZoneMode(id, mode string) (map[string]any, error) {
	m.modeCalls = append(m.modeCalls, id+":"+mode)
	z, _ := m.zones[id].(map[string]any)
	return z, nil
}

func (m *mockClient) SetZoneState(id string, brightness, temperature *float64) (map[string]any, error) {
	m.stateBright = brightness
	m.stateTemp = temperature
	z, _ := m.zones[id].(map[string]any)
	return z, nil
}

func (m *mockClient) SetZoneSettings(id string, settings map[string]any) (map[string]any, error) {
	m.settingsCalls = append(m.settingsCalls, settings)
	z, _ := m.zones[id].(map[string]any)
	return z, nil
}

func testZones() map[string]any {
	return map[string]any{
		"office": map[string]any{
			"id":          "office",
			"name":        "Office",
			"mode":        "adaptive",
			"brightness":  0.55,
			"temperature": 0.70,
			"settings": map[string]any{
				"sunset_temp":      1.0,
				"noon_temp":        0.40,
				"min_brightness":   0.10,
				"max_brightness":   1.0,
				"night_temp":       1.0,
				"night_brightness": 0.10,
			},
		},
	}
}

func runCommand(t *testing.T, mock client.Interface, args ...string) (string, error) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	cmd := NewRootCommand(logger, "test", "none", "now")
	cmd.SetArgs(args)
	ctx := context.WithValue(context.Background(), ClientContextKey, mock)

	var err error
	out := captureStdout(func() {
		err = cmd.ExecuteContext(ctx)
	})
	return out, err
}

func TestZoneListTable(t *testing.T) {
	mock := &mockClient{zones: testZones()}
	out, err := runCommand(t, mock, "zone", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "office")
	assert.Contains(t, out, "adaptive")
	assert.Contains(t, out, "55%")
}

func TestZoneListParseable(t *testing.T) {
	mock := &mockClient{zones: testZones()}
	out, err := runCommand(t, mock, "zone", "list", "--parseable")
	require.NoError(t, err)
	assert.Contains(t, out, `id="office"`)
	assert.Contains(t, out, "brightness=0.55")
	assert.Contains(t, out, "sunset_temp=1")
}

func TestZoneGet(t *testing.T) {
	mock := &mockClient{zones: testZones()}
	out, err := runCommand(t, mock, "zone", "get", "office", "-p")
	require.NoError(t, err)
	assert.Contains(t, out, `name="Office"`)
	assert.Contains(t, out, "mode=adaptive")
}

func TestZoneSetMode(t *testing.T) {
	mock := &mockClient{zones: testZones()}
	_, err := runCommand(t, mock, "zone", "set", "office", "--mode", "night")
	require.NoError(t, err)
	assert.Equal(t, []string{"office:night"}, mock.modeCalls)
}

func TestZoneSetBrightnessOnly(t *testing.T) {
	mock := &mockClient{zones: testZones()}
	_, err := runCommand(t, mock, "zone", "set", "office", "--brightness", "0.33")
	require.NoError(t, err)
	require.NotNil(t, mock.stateBright)
	assert.Equal(t, 0.33, *mock.stateBright)
	assert.Nil(t, mock.stateTemp)
}

func TestZoneSetRejectsOutOfRange(t *testing.T) {
	mock := &mockClient{zones: testZones()}
	_, err := runCommand(t, mock, "zone", "set", "office", "--brightness", "1.5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 0 and 1")
}

func TestZoneSetNothing(t *testing.T) {
	mock := &mockClient{zones: testZones()}
	_, err := runCommand(t, mock, "zone", "set", "office")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to set")
}

func TestZoneSettingsMergesCurrent(t *testing.T) {
	mock := &mockClient{zones: testZones()}
	_, err := runCommand(t, mock, "zone", "settings", "office", "--noon-temp", "30")
	require.NoError(t, err)
	require.Len(t, mock.settingsCalls, 1)

	sent := mock.settingsCalls[0]
	assert.Equal(t, 30, sent["noon_temp"])
	// Unnamed fields carry the zone's current values.
	assert.Equal(t, 100, sent["sunset_temp"])
	assert.Equal(t, 10, sent["min_brightness"])
	assert.Equal(t, "Office", sent["name"])
}

func TestZoneSettingsRequiresFlag(t *testing.T) {
	mock := &mockClient{zones: testZones()}
	_, err := runCommand(t, mock, "zone", "settings", "office")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}
