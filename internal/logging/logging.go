// Package logging is the structured logger shared by the engine, the CLI and
// the RPC server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field is a structured logging attribute.
type Field = slog.Attr

func String(key, value string) Field                 { return slog.String(key, value) }
func Int(key string, value int) Field                { return slog.Int(key, value) }
func Float64(key string, value float64) Field        { return slog.Float64(key, value) }
func Bool(key string, value bool) Field              { return slog.Bool(key, value) }
func Duration(key string, value time.Duration) Field { return slog.Duration(key, value) }
func Any(key string, value any) Field                { return slog.Any(key, value) }

// Err attaches an error under the "error" key.
func Err(err error) Field { return slog.Any("error", err) }

// Logger is the logging surface used across the simulator. Every method
// takes the context of the run or request it reports on.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Config selects the handler of a Logger.
type Config struct {
	Level     string // debug, info, warn, error, or an slog level such as "debug+2"
	Format    string // json or text
	AddSource bool
	Output    io.Writer // defaults to stderr so stdout stays free for results
}

// New builds a slog-backed Logger.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level), AddSource: cfg.AddSource}

	var h slog.Handler = slog.NewTextHandler(out, opts)
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(out, opts)
	}
	return slogger{h: h}
}

// NewFromEnv reads FLIGHTSIM_LOG_LEVEL and FLIGHTSIM_LOG_FORMAT, falling
// back to LOG_LEVEL and LOG_FORMAT.
func NewFromEnv() Logger {
	return New(Config{
		Level:  envOr("FLIGHTSIM_LOG_LEVEL", "LOG_LEVEL"),
		Format: envOr("FLIGHTSIM_LOG_FORMAT", "LOG_FORMAT"),
	})
}

func envOr(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Noop returns a logger that drops all logs.
func Noop() Logger { return noopLogger{} }

// slogger writes straight to a handler so that filtered levels cost one
// Enabled call; the engine logs every flight event at debug.
type slogger struct {
	h slog.Handler
}

func (s slogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return s
	}
	return slogger{h: s.h.WithAttrs(fields)}
}

func (s slogger) Debug(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, slog.LevelDebug, msg, fields)
}

func (s slogger) Info(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, slog.LevelInfo, msg, fields)
}

func (s slogger) Warn(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, slog.LevelWarn, msg, fields)
}

func (s slogger) Error(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, slog.LevelError, msg, fields)
}

func (s slogger) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.h.Enabled(ctx, level) {
		return
	}
	rec := slog.NewRecord(time.Now(), level, msg, 0)
	rec.AddAttrs(fields...)
	_ = s.h.Handle(ctx, rec)
}

type noopLogger struct{}

func (noopLogger) With(...Field) Logger                    { return noopLogger{} }
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo
	case "warning":
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Run IDs name one simulation. They travel on the context so the engine,
// the store and the RPC layer agree on them.

type ctxKey int

const (
	runIDKey ctxKey = iota
	loggerKey
)

// EnsureRunID returns ctx with a run ID, generating one when absent.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if id := RunIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return ContextWithRunID(ctx, id), id
}

// ContextWithRunID stores id as the run ID of ctx.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// ContextWithChildRunID derives the run ID of the i-th run started under
// ctx. Without a parent run ID, ctx is returned unchanged and the child gets
// a fresh ID when it starts.
func ContextWithChildRunID(ctx context.Context, i int) context.Context {
	parent := RunIDFromContext(ctx)
	if parent == "" {
		return ctx
	}
	return ContextWithRunID(ctx, fmt.Sprintf("%s-%d", parent, i))
}

// RunIDFromContext returns the run ID of ctx, or "".
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithRunLogger ensures ctx carries a run ID and returns base annotated
// with it.
func WithRunLogger(ctx context.Context, base Logger) (context.Context, Logger) {
	if base == nil {
		base = Noop()
	}
	ctx, id := EnsureRunID(ctx)
	return ctx, base.With(String("run_id", id))
}

// ContextWithLogger stores l on ctx; nil stores the noop logger.
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	if l == nil {
		l = Noop()
	}
	return context.WithValue(ctx, loggerKey, l)
}

// LoggerFromContext returns the logger stored on ctx, or nil.
func LoggerFromContext(ctx context.Context) Logger {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(loggerKey).(Logger)
	return l
}
