package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useBuffer(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := logger
	t.Cleanup(func() { logger = prev })

	var buf bytes.Buffer
	logger = slog.New(slog.NewJSONHandler(&buf, nil))
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestSetup(t *testing.T) {
	logger = nil
	once = *new(sync.Once)

	Setup("DEBUG", "json")
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNew_Formats(t *testing.T) {
	var jsonBuf bytes.Buffer
	New(&jsonBuf, "info", "json").Info("hello", "k", "v")
	assert.True(t, json.Valid(jsonBuf.Bytes()))

	var textBuf bytes.Buffer
	New(&textBuf, "info", "TEXT").Info("hello", "k", "v")
	assert.Contains(t, textBuf.String(), "msg=hello")
	assert.Contains(t, textBuf.String(), "k=v")

	var quiet bytes.Buffer
	New(&quiet, "error", "json").Warn("dropped")
	assert.Empty(t, strings.TrimSpace(quiet.String()))
}

func TestWithComponent(t *testing.T) {
	buf := useBuffer(t)
	WithComponent("server").Info("hello")

	out := decodeLine(t, buf)
	assert.Equal(t, "server", out["component"])
	assert.Equal(t, "hello", out["msg"])
}

func TestWithProvider(t *testing.T) {
	buf := useBuffer(t)
	WithProvider("stripe").Warn("rejected")

	out := decodeLine(t, buf)
	assert.Equal(t, "stripe", out["provider"])
	assert.Equal(t, "WARN", out["level"])
}

func TestWithEndpoint(t *testing.T) {
	buf := useBuffer(t)
	WithEndpoint("/hooks/github", "github").Info("accepted")

	out := decodeLine(t, buf)
	assert.Equal(t, "/hooks/github", out["path"])
	assert.Equal(t, "github", out["provider"])
}
