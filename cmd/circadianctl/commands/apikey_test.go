package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/circadiand/pkg/client"
)

type mockAPIKeyClient struct {
	client.Interface

	keys    []any
	created map[string]any

	createdName  string
	createdIn    string
	deletedKey   string
	disabledKey  string
	disabledFlag bool
}

func (m *mockAPIKeyClient) ListAPIKeys() ([]any, error) {
	return m.keys, nil
}

func (m *mockAPIKeyClient) CreateAPIKey(name, expiresIn string) (map[string]any, error) {
	m.createdName = name
	m.createdIn = expiresIn
	return m.created, nil
}

func (m *mockAPIKeyClient) DeleteAPIKey(key string) error {
	m.deletedKey = key
	return nil
}

func (m *mockAPIKeyClient) SetAPIKeyDisabled(key string, disabled bool) (map[string]any, error) {
	m.disabledKey = key
	m.disabledFlag = disabled
	return map[string]any{"name": "cli", "disabled": disabled}, nil
}

func testKeys() []any {
	return []any{
		map[string]any{
			"id":         "4f2c9f36",
			"name":       "cli",
			"key":        "abcdefgh12345678",
			"created_at": "2026-08-01T10:00:00Z",
			"expires_at": "0001-01-01T00:00:00Z",
			"disabled":   false,
		},
	}
}

func TestAPIKeyListObfuscatesKeys(t *testing.T) {
	mock := &mockAPIKeyClient{keys: testKeys()}
	out, err := runCommand(t, mock, "api-key", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "abcd...5678")
	assert.NotContains(t, out, "abcdefgh12345678")
	assert.Contains(t, out, "Never")
}

func TestAPIKeyListParseableShowsFullKey(t *testing.T) {
	mock := &mockAPIKeyClient{keys: testKeys()}
	out, err := runCommand(t, mock, "api-key", "list", "-p")
	require.NoError(t, err)
	assert.Contains(t, out, `key="abcdefgh12345678"`)
	assert.Contains(t, out, "enabled=true")
}

func TestAPIKeyAdd(t *testing.T) {
	mock := &mockAPIKeyClient{created: map[string]any{
		"name": "cli", "key": "abcdefgh12345678", "expires_at": "2026-09-01T10:00:00Z",
	}}
	out, err := runCommand(t, mock, "api-key", "add", "cli", "720h")
	require.NoError(t, err)
	assert.Equal(t, "cli", mock.createdName)
	assert.Equal(t, "720h", mock.createdIn)
	assert.Contains(t, out, "abcdefgh12345678")
}

func TestAPIKeyAddRejectsBadDuration(t *testing.T) {
	mock := &mockAPIKeyClient{}
	_, err := runCommand(t, mock, "api-key", "add", "cli", "next-week")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestAPIKeyDelete(t *testing.T) {
	mock := &mockAPIKeyClient{}
	_, err := runCommand(t, mock, "api-key", "delete", "abcdefgh12345678")
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh12345678", mock.deletedKey)
}

func TestAPIKeySetEnabled(t *testing.T) {
	mock := &mockAPIKeyClient{}
	out, err := runCommand(t, mock, "api-key", "set-enabled", "abcdefgh12345678", "false")
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh12345678", mock.disabledKey)
	assert.True(t, mock.disabledFlag)
	assert.Contains(t, out, "Enabled=false")
}
