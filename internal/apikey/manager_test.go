package apikey

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/circadiand/internal/config"
	"github.com/jmylchreest/circadiand/internal/errors"
)

// newTestManager creates a Manager backed by a temp config file.
func newTestManager(t *testing.T) (*Manager, *config.Config) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), config.DaemonConfigFilename)

	cfg, err := config.Load(config.DaemonConfigFilename, cfgPath)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewManager(cfg, logger), cfg
}

func TestCreateAPIKey(t *testing.T) {
	mgr, cfg := newTestManager(t)

	created, err := mgr.CreateAPIKey("automation", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, created.Key, config.DefaultKeyLength)
	assert.True(t, created.ExpiresAt.IsZero(), "zero expiresIn means no expiry")

	// Duplicate names are rejected.
	_, err = mgr.CreateAPIKey("automation", 0)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))

	// Persisted: a fresh load from the same file sees the key.
	reloaded, err := config.Load(config.DaemonConfigFilename, cfg.ConfigFileUsed())
	require.NoError(t, err)
	keys := reloaded.GetAPIKeys()
	require.Len(t, keys, 1)
	assert.Equal(t, created.Key, keys[0].Key)
}

func TestValidateAPIKeyLifecycle(t *testing.T) {
	mgr, cfg := newTestManager(t)

	created, err := mgr.CreateAPIKey("lifecycle", 0)
	require.NoError(t, err)

	validated, err := mgr.ValidateAPIKey(created.Key)
	require.NoError(t, err)
	assert.False(t, validated.LastUsedAt.IsZero(), "validation stamps LastUsedAt")

	_, err = mgr.SetAPIKeyDisabledStatus("lifecycle", true)
	require.NoError(t, err)

	_, err = mgr.ValidateAPIKey(created.Key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")

	k, found := cfg.FindAPIKey(created.Key)
	require.True(t, found)
	assert.True(t, k.Disabled)

	_, err = mgr.SetAPIKeyDisabledStatus("lifecycle", false)
	require.NoError(t, err)
	_, err = mgr.ValidateAPIKey(created.Key)
	require.NoError(t, err)
}

func TestValidateAPIKeyExpiration(t *testing.T) {
	mgr, _ := newTestManager(t)

	created, err := mgr.CreateAPIKey("expiring", 50*time.Millisecond)
	require.NoError(t, err)

	_, err = mgr.ValidateAPIKey(created.Key)
	require.NoError(t, err)

	time.Sleep(75 * time.Millisecond)

	_, err = mgr.ValidateAPIKey(created.Key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateAPIKeyUnknown(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.ValidateAPIKey("nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteAPIKey(t *testing.T) {
	mgr, _ := newTestManager(t)

	created, err := mgr.CreateAPIKey("ephemeral", 0)
	require.NoError(t, err)

	require.NoError(t, mgr.DeleteAPIKey(created.Key))
	assert.Empty(t, mgr.ListAPIKeys())

	err = mgr.DeleteAPIKey(created.Key)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteAPIKeyByID(t *testing.T) {
	mgr, _ := newTestManager(t)

	created, err := mgr.CreateAPIKey("by-id", 0)
	require.NoError(t, err)
	require.NoError(t, mgr.DeleteAPIKey(created.ID))
	assert.Empty(t, mgr.ListAPIKeys())
}
