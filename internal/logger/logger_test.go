package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "info", Format: "json", Output: buf})

	l.Info("workbook loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "workbook loaded", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "warn", Format: "json", Output: buf})

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warnf("sheet %q has no metrics", "Data")
	assert.Contains(t, buf.String(), `sheet \"Data\" has no metrics`)
}

func TestLogger_ChildFieldsAndErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "debug", Format: "json", Output: buf})

	child := l.With().Str("workbook", "sales.xlsx").Int("sheets", 2).Logger()
	child.ErrorWith("render failed", errors.New("boom"), map[string]any{"kind": "radar"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sales.xlsx", entry["workbook"])
	assert.EqualValues(t, 2, entry["sheets"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "radar", entry["kind"])
}

func TestLogger_Context(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "info", Format: "json", Output: buf})

	ctx := l.WithContext(context.Background())
	FromContext(ctx).Info("from context")
	assert.Contains(t, buf.String(), "from context")

	assert.NotNil(t, FromContext(context.Background()))
}
