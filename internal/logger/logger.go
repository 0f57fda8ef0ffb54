package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
)

type Logger struct {
	service  string
	hostname string
	handler  *slog.Logger
}

// New creates a JSON logger writing to stdout at the given level.
func New(service, level string) *Logger {
	return NewWithWriter(service, os.Stdout, ParseLevel(level))
}

func NewWithWriter(service string, w io.Writer, level slog.Level) *Logger {
	hostname, _ := os.Hostname()

	handler := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))

	return &Logger{
		service:  service,
		hostname: hostname,
		handler:  handler,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewWithWriter("nop", io.Discard, slog.LevelError+1)
}

// ParseLevel maps debug/info/warn/error to a slog level; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Info(action, message string, fields map[string]any) {
	l.log(slog.LevelInfo, action, message, nil, fields)
}

func (l *Logger) Debug(action, message string, fields map[string]any) {
	l.log(slog.LevelDebug, action, message, nil, fields)
}

func (l *Logger) Warn(action, message string, fields map[string]any) {
	l.log(slog.LevelWarn, action, message, nil, fields)
}

func (l *Logger) Error(action, message string, err error, fields map[string]any) {
	l.log(slog.LevelError, action, message, err, fields)
}

func (l *Logger) log(level slog.Level, action, message string, err error, fields map[string]any) {
	if !l.handler.Enabled(context.Background(), level) {
		return
	}

	attrs := []slog.Attr{
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}

	if err != nil {
		attrs = append(attrs, slog.Group("error",
			slog.String("msg", err.Error()),
		))
	}

	l.handler.LogAttrs(context.Background(), level, message, attrs...)
}
