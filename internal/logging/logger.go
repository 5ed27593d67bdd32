// Package logging provides config-driven categorized logging for the catalog console.
// All categories share one zap core writing to <dir>/catalog.log; each category is a
// named child logger. Logging is controlled by debug_mode - when false, nothing is written
// (the TUI owns the terminal, so console output is never used here).
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot   Category = "boot"   // Startup, config loading
	CategoryAPI    Category = "api"    // Backend REST calls
	CategoryWizard Category = "wizard" // Onboarding session transitions
	CategorySearch Category = "search" // Async search requests
	CategoryStore  Category = "store"  // Onboarding history database
	CategoryUI     Category = "ui"     // TUI events
	CategoryConfig Category = "config" // Config reloads
)

// LogFileName is the file written inside the configured log directory.
const LogFileName = "catalog.log"

// Options mirrors config.LoggingConfig to avoid an import cycle
// (config's watcher logs through this package).
type Options struct {
	Dir        string
	Level      string
	Format     string // json or text
	DebugMode  bool
	Categories map[string]bool
}

// Logger is a printf-style category logger. The zero value is a no-op.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	opts    Options
	base    *zap.Logger
	file    *os.File
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	loggers = make(map[Category]*Logger)
)

// Initialize sets up the shared zap core. Calling it again replaces the previous
// core and closes its file.
func Initialize(o Options) error {
	CloseAll()

	mu.Lock()
	defer mu.Unlock()

	opts = o
	if err := setLevelLocked(o.Level); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	if !o.DebugMode {
		return nil
	}
	if o.Dir == "" {
		return fmt.Errorf("log directory required when debug_mode is enabled")
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(o.Dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if o.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	file = f
	base = zap.New(zapcore.NewCore(enc, zapcore.AddSync(f), level))
	base.Named(string(CategoryBoot)).Sugar().Infof("logging initialized: dir=%s level=%s", o.Dir, level.Level())
	return nil
}

// SetLevel changes the level of every category logger at runtime.
func SetLevel(lvl string) error {
	mu.Lock()
	defer mu.Unlock()
	return setLevelLocked(lvl)
}

func setLevelLocked(lvl string) error {
	if lvl == "" {
		return nil
	}
	if lvl == "warning" {
		lvl = "warn"
	}
	parsed, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", lvl, err)
	}
	level.SetLevel(parsed)
	opts.Level = lvl
	return nil
}

// CurrentLevel returns the active level name.
func CurrentLevel() string {
	return level.Level().String()
}

// IsDebugMode returns whether file logging is enabled
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories missing from the map are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	enabled := categoryEnabledLocked(category) && base != nil
	mu.RUnlock()

	if !enabled {
		return &Logger{category: category}
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	if base == nil {
		return &Logger{category: category}
	}
	l := &Logger{category: category, sugar: base.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a child logger that attaches the key/value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// CloseAll flushes and closes the log file (call at shutdown)
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()

	if base != nil {
		_ = base.Sync()
	}
	if file != nil {
		_ = file.Close()
	}
	base = nil
	file = nil
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootError logs error to the boot category
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

// API logs to the api category
func API(format string, args ...interface{}) { Get(CategoryAPI).Info(format, args...) }

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }

// APIWarn logs warning to the api category
func APIWarn(format string, args ...interface{}) { Get(CategoryAPI).Warn(format, args...) }

// Wizard logs to the wizard category
func Wizard(format string, args ...interface{}) { Get(CategoryWizard).Info(format, args...) }

// WizardDebug logs debug to the wizard category
func WizardDebug(format string, args ...interface{}) { Get(CategoryWizard).Debug(format, args...) }

// WizardWarn logs warning to the wizard category
func WizardWarn(format string, args ...interface{}) { Get(CategoryWizard).Warn(format, args...) }

// WizardError logs error to the wizard category
func WizardError(format string, args ...interface{}) { Get(CategoryWizard).Error(format, args...) }

// SearchDebug logs debug to the search category
func SearchDebug(format string, args ...interface{}) { Get(CategorySearch).Debug(format, args...) }

// SearchWarn logs warning to the search category
func SearchWarn(format string, args ...interface{}) { Get(CategorySearch).Warn(format, args...) }

// Store logs to the store category
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }

// StoreError logs error to the store category
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

// UIDebug logs debug to the ui category
func UIDebug(format string, args ...interface{}) { Get(CategoryUI).Debug(format, args...) }

// Config logs to the config category
func Config(format string, args ...interface{}) { Get(CategoryConfig).Info(format, args...) }

// ConfigWarn logs warning to the config category
func ConfigWarn(format string, args ...interface{}) { Get(CategoryConfig).Warn(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
