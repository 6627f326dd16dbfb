package log

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu       sync.Mutex
	logger   *zap.SugaredLogger
	base     *zap.Logger
	minLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	format   = "console"
)

// initLogger lazily builds the global logger. Output goes to stderr.
func initLogger() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		return logger
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.Development = false
	}
	cfg.Level = minLevel
	cfg.DisableStacktrace = true

	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		l = zap.NewNop()
	}
	base = l
	logger = l.Sugar()
	return logger
}

// Configure rebuilds the global logger with the given level and encoding
// ("console" or "json"). Unknown values fall back to INFO / console.
func Configure(level, enc string) {
	mu.Lock()
	if enc == "json" {
		format = "json"
	} else {
		format = "console"
	}
	if base != nil {
		_ = base.Sync()
	}
	logger = nil
	base = nil
	mu.Unlock()

	SetLevel(ParseLevel(level))
	initLogger()
}

// ParseLevel maps a config string to a Level; empty or unknown is INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	switch l {
	case LevelDebug:
		minLevel.SetLevel(zapcore.DebugLevel)
	case LevelWarn:
		minLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		minLevel.SetLevel(zapcore.ErrorLevel)
	default:
		minLevel.SetLevel(zapcore.InfoLevel)
	}
}

// Enabled reports whether messages at level l are currently emitted.
func Enabled(l Level) bool {
	switch l {
	case LevelDebug:
		return minLevel.Enabled(zapcore.DebugLevel)
	case LevelWarn:
		return minLevel.Enabled(zapcore.WarnLevel)
	case LevelError:
		return minLevel.Enabled(zapcore.ErrorLevel)
	default:
		return minLevel.Enabled(zapcore.InfoLevel)
	}
}

func Debug(msg string, kv ...any) {
	logWithLevel(LevelDebug, msg, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(LevelInfo, msg, kv...)
}

func Warn(msg string, kv ...any) {
	logWithLevel(LevelWarn, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logWithLevel(LevelError, msg, extended...)
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if base != nil {
		_ = base.Sync()
	}
}

func logWithLevel(level Level, msg string, kv ...any) {
	l := initLogger()
	// Odd trailing keys are dropped, matching the old line formatter.
	if len(kv)%2 == 1 {
		kv = kv[:len(kv)-1]
	}
	switch level {
	case LevelDebug:
		l.Debugw(msg, kv...)
	case LevelWarn:
		l.Warnw(msg, kv...)
	case LevelError:
		l.Errorw(msg, kv...)
	default:
		l.Infow(msg, kv...)
	}
}
