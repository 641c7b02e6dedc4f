package logger

import (
	"log/slog"

	"multisender/internal/app/port"
)

// slogAdapter implements port.Logger on top of the global logger or a derived one.
type slogAdapter struct {
	l *slog.Logger // nil means the global logger
}

// NewSlogAdapter returns a port.Logger writing through the package-level logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// NewLogger wraps an explicit slog logger.
func NewLogger(l *slog.Logger) port.Logger {
	return &slogAdapter{l: l}
}

func (a *slogAdapter) logger() *slog.Logger {
	if a.l != nil {
		return a.l
	}
	return current()
}

func (a *slogAdapter) Info(msg string, args ...any) {
	a.logger().Info(msg, args...)
}

func (a *slogAdapter) Debug(msg string, args ...any) {
	a.logger().Debug(msg, args...)
}

func (a *slogAdapter) Warn(msg string, args ...any) {
	a.logger().Warn(msg, args...)
}

func (a *slogAdapter) Error(msg string, args ...any) {
	a.logger().Error(msg, args...)
}

func (a *slogAdapter) With(args ...any) port.Logger {
	return &slogAdapter{l: a.logger().With(args...)}
}
