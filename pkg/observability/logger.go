// Package observability provides structured logging, metrics and health
// checks for gritline.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LogFormat selects the handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// LogLevel is the minimum level written.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogConfig configures NewLogger.
type LogConfig struct {
	Level  LogLevel
	Format LogFormat
	// Output defaults to os.Stderr.
	Output         io.Writer
	AddSource      bool
	ServiceName    string
	ServiceVersion string
}

// DefaultLogConfig logs text at info to stderr.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:          LogLevelInfo,
		Format:         LogFormatText,
		Output:         os.Stderr,
		ServiceName:    "gritline",
		ServiceVersion: "dev",
	}
}

// ProductionLogConfig logs JSON with source locations to stdout.
func ProductionLogConfig() LogConfig {
	return LogConfig{
		Level:          LogLevelInfo,
		Format:         LogFormatJSON,
		Output:         os.Stdout,
		AddSource:      true,
		ServiceName:    "gritline",
		ServiceVersion: "unknown",
	}
}

// NewLogger builds a logger that stamps the service name and version on
// every record, plus the correlation ID of the context it is called with.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseSlogLevel(cfg.Level), AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.Format == LogFormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	var attrs []slog.Attr
	if cfg.ServiceName != "" {
		attrs = append(attrs, slog.String("service", cfg.ServiceName))
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, slog.String("version", cfg.ServiceVersion))
	}
	if len(attrs) > 0 {
		handler = handler.WithAttrs(attrs)
	}
	return slog.New(correlationHandler{handler})
}

// LoggerForEnv creates a logger for an APP_ENV and LOG_LEVEL pair.
// Production logs JSON; other environments log text. Development defaults to
// debug when no level is given. A nil out keeps the config's writer.
func LoggerForEnv(appEnv, level string, out io.Writer) *slog.Logger {
	cfg := DefaultLogConfig()
	switch appEnv {
	case "production":
		cfg = ProductionLogConfig()
	case "development":
		cfg.Level = LogLevelDebug
	}
	if out != nil {
		cfg.Output = out
	}
	if level != "" {
		cfg.Level = LogLevel(level)
	}
	return NewLogger(cfg)
}

func parseSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// correlationHandler adds the context's correlation ID to each record.
type correlationHandler struct {
	slog.Handler
}

func (h correlationHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := CorrelationIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String(CorrelationIDKey, id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h correlationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return correlationHandler{h.Handler.WithAttrs(attrs)}
}

func (h correlationHandler) WithGroup(name string) slog.Handler {
	return correlationHandler{h.Handler.WithGroup(name)}
}
