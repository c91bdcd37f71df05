package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "DEBUG", Output: &buf})
	require.NoError(t, err)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	WithRequestID(ctx, log).Debug("session refreshed")
	require.NoError(t, log.Sync())

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "session refreshed", line["msg"])
	require.Equal(t, "req-1", line["request_id"])
	require.Contains(t, line, "timestamp")
	require.Contains(t, line, "caller")
}

func TestLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "loud", Output: &buf})
	require.NoError(t, err)

	log.Debug("hidden")
	require.Zero(t, buf.Len())
	log.Info("shown")
	require.NotZero(t, buf.Len())
}

func TestRequestIDMissing(t *testing.T) {
	require.Empty(t, RequestID(context.Background()))
	require.NotNil(t, WithRequestID(context.Background(), nil))
}
