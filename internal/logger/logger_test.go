package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed(t *testing.T) (*Logger, *observer.ObservedLogs) {
	t.Helper()
	t.Setenv("PREPFORGE_LOG_REDACTION", "on")
	core, logs := observer.New(zap.DebugLevel)
	return FromZap(zap.New(core)), logs
}

func TestRedactsSecrets(t *testing.T) {
	l, logs := observed(t)

	l.Info("provider ready", "api_key", "sk-123", "model", "m1")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "m1", fields["model"])
}

func TestHashesIdentifiers(t *testing.T) {
	l, logs := observed(t)

	l.With("user_id", "alice").Warn("slow request", "session_id", "s1")

	fields := logs.All()[0].ContextMap()
	uid, ok := fields["user_id"].(string)
	require.True(t, ok)
	assert.NotEqual(t, "alice", uid)
	assert.Contains(t, uid, "hash:")
	assert.NotEqual(t, "s1", fields["session_id"])
}

func TestRedactionDisabled(t *testing.T) {
	t.Setenv("PREPFORGE_LOG_REDACTION", "off")
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Debug("raw", "user_id", "alice")

	assert.Equal(t, "alice", logs.All()[0].ContextMap()["user_id"])
}

func TestOddKeyValues(t *testing.T) {
	l, logs := observed(t)
	l.Error("dangling", "key")
	// zap reports the ignored key as a separate entry.
	assert.NotZero(t, logs.FilterMessage("dangling").Len())
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("ignored", "k", "v")
	l.With("a", 1).Error("ignored")
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New("prod", path)
	require.NoError(t, err)

	l.Info("inventory loaded", "keys", 3)
	l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"inventory loaded"`)
	assert.Contains(t, string(data), `"keys":3`)
}
