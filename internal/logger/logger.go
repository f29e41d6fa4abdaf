// Package logger wraps zap's sugared logger with key-value redaction.
//
// Values under keys that look like credentials are replaced with
// "[REDACTED]"; learner and session identifiers are hashed so log lines can
// still be correlated without exposing raw IDs. Set
// PREPFORGE_LOG_REDACTION=off to disable this during local debugging.
package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured logger taking alternating key-value pairs.
type Logger struct {
	sugar  *zap.SugaredLogger
	redact bool
	salt   string
}

// New builds a Logger. mode "prod"/"production" yields JSON output at info
// level; anything else yields human-readable development output at debug.
// Output goes to stderr unless paths (files, or zap sink URLs) are given.
func New(mode string, paths ...string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if len(paths) == 0 {
		// stdout is for command output.
		paths = []string{"stderr"}
	} else {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.OutputPaths = paths
	cfg.ErrorOutputPaths = paths

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return FromZap(z), nil
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{
		sugar:  z.Sugar(),
		redact: redactionEnabled(),
		salt:   strings.TrimSpace(os.Getenv("PREPFORGE_LOG_HASH_SALT")),
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, l.sanitize(kv)...) }
func (l *Logger) Info(msg string, kv ...any)  { l.sugar.Infow(msg, l.sanitize(kv)...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.sugar.Warnw(msg, l.sanitize(kv)...) }
func (l *Logger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, l.sanitize(kv)...) }

// With returns a child logger that always includes kv.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{
		sugar:  l.sugar.With(l.sanitize(kv)...),
		redact: l.redact,
		salt:   l.salt,
	}
}

// Named returns a child logger with name appended to the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{sugar: l.sugar.Named(name), redact: l.redact, salt: l.salt}
}

func (l *Logger) sanitize(kv []any) []any {
	if !l.redact || len(kv) == 0 {
		return kv
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := toString(kv[i])
		out = append(out, key, l.sanitizeValue(strings.ToLower(key), kv[i+1]))
	}
	return out
}

func (l *Logger) sanitizeValue(key string, val any) any {
	switch {
	case isSecretKey(key):
		return "[REDACTED]"
	case isIdentityKey(key):
		return l.hash(val)
	}
	return val
}

func isSecretKey(key string) bool {
	for _, s := range []string{"token", "authorization", "password", "secret", "api_key", "apikey", "email"} {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

func isIdentityKey(key string) bool {
	return strings.Contains(key, "user_id") || strings.Contains(key, "session_id")
}

func (l *Logger) hash(val any) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(l.salt))
	h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func redactionEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("PREPFORGE_LOG_REDACTION"))) {
	case "0", "false", "no", "off":
		return false
	}
	return true
}
