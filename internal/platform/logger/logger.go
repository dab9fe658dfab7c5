package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yungbote/taskmaster-backend/internal/platform/ctxutil"
)

// Logger is a structured key/value logger. Values logged under sensitive
// keys are redacted or hashed before they reach the sink.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	policy        *policy
}

// New builds a logger for mode ("production", "development" or "test").
// LOG_LEVEL overrides the level, LOG_REDACTION_ENABLED=false turns value
// scrubbing off and LOG_HASH_SALT salts hashed identifiers.
func New(mode string) (*Logger, error) {
	pol := policyFromEnv()
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(levelFromEnv(zapcore.InfoLevel))
	case "test":
		return &Logger{SugaredLogger: zap.NewNop().Sugar(), policy: pol}, nil
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(levelFromEnv(zapcore.DebugLevel))
	}
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &Logger{SugaredLogger: z.Sugar(), policy: pol}, nil
}

// NewWithCore wraps an existing core, mainly for tests that inspect output.
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{SugaredLogger: zap.New(core).Sugar(), policy: &policy{enabled: true}}
}

func levelFromEnv(def zapcore.Level) zapcore.Level {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if raw == "" {
		return def
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return def
	}
	return lvl
}

func (l *Logger) Sync() { _ = l.SugaredLogger.Sync() }

func (l *Logger) Debug(msg string, kv ...interface{}) { l.SugaredLogger.Debugw(msg, l.policy.scrub(kv)...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.SugaredLogger.Infow(msg, l.policy.scrub(kv)...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.SugaredLogger.Warnw(msg, l.policy.scrub(kv)...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.SugaredLogger.Errorw(msg, l.policy.scrub(kv)...) }
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.SugaredLogger.Fatalw(msg, l.policy.scrub(kv)...) }

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.policy.scrub(kv)...), policy: l.policy}
}

// WithContext adds the request id, trace id and caller identity carried by
// ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	var kv []interface{}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.RequestID != "" {
			kv = append(kv, "request_id", td.RequestID)
		}
		if td.TraceID != "" {
			kv = append(kv, "trace_id", td.TraceID)
		}
	}
	if rd := ctxutil.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		kv = append(kv, "user_id", rd.UserID.String())
	}
	if len(kv) == 0 {
		return l
	}
	return l.With(kv...)
}

const redacted = "[REDACTED]"

var (
	redactFragments = []string{"token", "authorization", "password", "secret", "cookie", "api_key", "apikey", "email", "credential"}
	hashFragments   = []string{"user_id", "updated_by", "owner_id", "session_id"}
	// document bodies are logged by size only
	sizeOnlyKeys = map[string]bool{"content": true, "body": true, "previous_content": true}
)

type policy struct {
	enabled bool
	salt    string
}

func policyFromEnv() *policy {
	p := &policy{enabled: true, salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		p.enabled = false
	}
	return p
}

func (p *policy) scrub(kv []interface{}) []interface{} {
	if p == nil || !p.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			out = append(out, kv[i])
			break
		}
		out = append(out, kv[i], p.value(strings.ToLower(strings.TrimSpace(stringify(kv[i]))), kv[i+1]))
	}
	return out
}

func (p *policy) value(key string, val interface{}) interface{} {
	switch {
	case key == "":
		return val
	case sizeOnlyKeys[key]:
		return fmt.Sprintf("[%d bytes]", len(stringify(val)))
	case containsAny(key, redactFragments):
		return redacted
	case containsAny(key, hashFragments):
		return p.hash(val)
	}
	if s, ok := val.(string); ok && looksLikeJWT(s) {
		return redacted
	}
	return val
}

func (p *policy) hash(val interface{}) string {
	raw := stringify(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(p.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func containsAny(key string, frags []string) bool {
	for _, f := range frags {
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
