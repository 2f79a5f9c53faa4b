package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapter_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := FromZerolog(zerolog.New(&buf)).With(map[string]interface{}{"component": "linking"})

	logger.Error(context.Background(), "link failed", errors.New("boom"), map[string]interface{}{"account_id": "acct-1"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "link failed", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "acct-1", entry["account_id"])
	assert.Equal(t, "linking", entry["component"])
	assert.NotContains(t, entry, "trace_id")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	level, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)
}
