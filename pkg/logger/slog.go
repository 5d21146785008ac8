package logger

import (
	"context"
	"log/slog"
)

// SlogHandler adapts a Logger to the slog.Handler interface. Components are
// written against *slog.Logger; wrapping the process logger in this handler
// gives them the same JSON output as the wiring code.
type SlogHandler struct {
	logger *Logger
	attrs  []Field
	prefix string
}

// NewSlogHandler wraps the given logger. Callers normally disable the
// logger's caller annotation first since the call site would resolve to slog
// internals.
func NewSlogHandler(l *Logger) *SlogHandler {
	return &SlogHandler{logger: l}
}

// Enabled reports whether records at the given level are logged.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return levelFromSlog(level) >= h.logger.level
}

// Handle writes the record through the wrapped logger.
func (h *SlogHandler) Handle(_ context.Context, rec slog.Record) error {
	fields := make([]Field, 0, len(h.attrs)+rec.NumAttrs())
	fields = append(fields, h.attrs...)
	rec.Attrs(func(a slog.Attr) bool {
		fields = append(fields, Field{Key: h.prefix + a.Key, Value: a.Value.Any()})
		return true
	})
	h.logger.log(levelFromSlog(rec.Level), rec.Message, fields...)
	return nil
}

// WithAttrs returns a handler with the attributes pre-applied.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make([]Field, len(h.attrs), len(h.attrs)+len(attrs))
	copy(fields, h.attrs)
	for _, a := range attrs {
		fields = append(fields, Field{Key: h.prefix + a.Key, Value: a.Value.Any()})
	}
	return &SlogHandler{logger: h.logger, attrs: fields, prefix: h.prefix}
}

// WithGroup returns a handler that prefixes attribute keys with the group
// name, dot separated.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SlogHandler{logger: h.logger, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func levelFromSlog(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return LevelDebug
	case level < slog.LevelWarn:
		return LevelInfo
	case level < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}
