// Package log provides structured, categorized logging for clanbot.
// Entries go through a zap core that tees to stderr and to a daily
// rotating file under the configured log directory.
package log

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category groups related log messages.
type Category string

const (
	CatConfig   Category = "config"   // Configuration loading/saving
	CatDB       Category = "db"       // Store operations
	CatSession  Category = "session"  // Registration wizard sessions
	CatClan     Category = "clan"     // Clan lifecycle operations
	CatSync     Category = "sync"     // Published summaries and join panel
	CatPlatform Category = "platform" // Chat platform calls
	CatCache    Category = "cache"    // cache operations
	CatState    Category = "state"    // On-disk state file
	CatWatcher  Category = "watcher"  // File watcher events
	CatBot      Category = "bot"      // Event dispatch
)

// Options configures the global logger.
type Options struct {
	Level   string // debug, info, warn, error
	Dir     string // daily log files are written here; empty disables file output
	Console bool
}

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Init builds the global logger. The returned cleanup flushes and closes
// the log file.
func Init(opts Options) (func(), error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if opts.Console {
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level))
	}

	var file *DailyFile
	if opts.Dir != "" {
		file, err = NewDailyFile(opts.Dir)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), file, level))
	}

	SetLogger(zap.New(zapcore.NewTee(cores...)))

	return func() {
		mu.RLock()
		_ = logger.Sync()
		mu.RUnlock()
		if file != nil {
			_ = file.Close()
		}
	}, nil
}

// ParseLevel maps a config level name onto a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// SetLogger replaces the global logger and returns a func restoring the
// previous one. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) func() {
	mu.Lock()
	prev := logger
	logger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	write(zapcore.DebugLevel, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	write(zapcore.InfoLevel, cat, msg, fields...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	write(zapcore.WarnLevel, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	write(zapcore.ErrorLevel, cat, msg, fields...)
}

// ErrorErr logs an error with the error value.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	write(zapcore.ErrorLevel, cat, msg, fields...)
}

func write(level zapcore.Level, cat Category, msg string, fields ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	ce := l.Check(level, msg)
	if ce == nil {
		return
	}

	zf := make([]zap.Field, 0, len(fields)/2+2)
	zf = append(zf, zap.String("category", string(cat)))
	for i := 0; i+1 < len(fields); i += 2 {
		zf = append(zf, zap.Any(fmt.Sprint(fields[i]), fields[i+1]))
	}
	// Odd field count: keep the orphan key visible
	if len(fields)%2 != 0 {
		zf = append(zf, zap.String(fmt.Sprint(fields[len(fields)-1]), "<missing>"))
	}
	ce.Write(zf...)
}
