package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.RWMutex
	globalLogger *slog.Logger
	zapLogger    *zap.Logger
)

// ParseLevel maps a config level string onto a zap level, defaulting to info.
func ParseLevel(levelStr string) (zapcore.Level, bool) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return zapcore.DebugLevel, true
	case "INFO":
		return zapcore.InfoLevel, true
	case "WARN":
		return zapcore.WarnLevel, true
	case "ERROR":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// Init builds the zap production logger at the given level and installs a slog
// bridge on top of it as the global and default slog logger.
func Init(levelStr string, development bool) (*zap.Logger, error) {
	level, ok := ParseLevel(levelStr)

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stdout"}

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	install(zl)
	if !ok {
		Warn("Invalid log level string, defaulting to INFO", "input", levelStr)
	}
	return zl, nil
}

// Use installs an existing zap logger, mainly for tests and embedding.
func Use(zl *zap.Logger) {
	install(zl)
}

func install(zl *zap.Logger) {
	l := slog.New(zapslog.NewHandler(zl.Core()))

	mu.Lock()
	zapLogger = zl
	globalLogger = l
	mu.Unlock()

	slog.SetDefault(l)
}

func current() *slog.Logger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	zl, err := zap.NewProduction()
	if err != nil {
		zl = zap.NewNop()
	}
	install(zl)
	return Slog()
}

// Slog returns the global slog logger.
func Slog() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Zap returns the zap logger backing the global logger, initialising it when needed.
func Zap() *zap.Logger {
	current()
	mu.RLock()
	defer mu.RUnlock()
	return zapLogger
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	zl := zapLogger
	mu.RUnlock()
	if zl != nil {
		_ = zl.Sync()
	}
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) {
	l := current()
	if l.Enabled(context.Background(), slog.LevelDebug) {
		l.Debug(msg, args...)
	}
}

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// Fatal logs a message at ErrorLevel then exits.
func Fatal(msg string, args ...any) {
	current().Error(msg, args...)
	Sync()
	os.Exit(1)
}
