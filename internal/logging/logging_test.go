package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/circadiand/internal/errors"
)

func TestSetLevelChangesOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo, FormatText)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, SetLevel(LevelDebug))
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Equal(t, LevelDebug, Level())

	// Restore for other tests sharing the package-level var.
	require.NoError(t, SetLevel(LevelInfo))
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	err := SetLevel("verbose")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo, FormatJSON)
	logger.Info("hello", "zone", "office")
	assert.Contains(t, buf.String(), `"zone":"office"`)
}
