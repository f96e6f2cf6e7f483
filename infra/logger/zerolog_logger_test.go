package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestNewWithWriter_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "engine", "warn").With("run_id", "r1")
	l.Infof("hidden")
	l.Warnf("shortfall %d", 20)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "engine", rec["component"])
	assert.Equal(t, "r1", rec["run_id"])
	assert.Equal(t, "shortfall 20", rec["message"])
	assert.Equal(t, "warn", rec["level"])
}
