package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger_WritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, Options{Backend: BackendZerolog, Level: "debug"})
	require.NoError(t, err)
	require.IsType(t, &ZerologLogger{}, l)

	l.With("component", "pool").Error(context.Background(), "task failed", "task", "commit", "err", errors.New("disk full"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "error", rec["level"])
	assert.Equal(t, "task failed", rec["message"])
	assert.Equal(t, "pool", rec["component"])
	assert.Equal(t, "commit", rec["task"])
	assert.Equal(t, "disk full", rec["err"])
	assert.Contains(t, rec, "time")
}

func TestZerologLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, Options{Backend: BackendZerolog, Level: "error"})
	require.NoError(t, err)

	l.Debug(context.Background(), "d")
	l.Info(context.Background(), "i")
	l.Warn(context.Background(), "w")
	assert.Zero(t, buf.Len())
}
