// Package logging provides config-driven categorized file-based logging for the injector.
// Logs are written to <root>/.inject/logs/ with separate files per category.
// Logging is controlled by debug_mode in the manifest - when false, no log files are written.
// Warnings and errors are additionally mirrored to the console logger when one is set.
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

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, configuration
	CategoryScaffold Category = "scaffold" // Directories, seed copies
	CategorySource   Category = "source"   // Parsing and printing modules
	CategoryImports  Category = "imports"  // Import insertion, renaming, organizing
	CategoryRegistry Category = "registry" // Registry binding and property merges
	CategoryInject   Category = "inject"   // Orchestration state machine
	CategoryWatch    Category = "watch"    // Manifest watcher
)

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	DebugMode  bool
	Level      string
	Format     string // json or text
	Categories map[string]bool
}

// Logger writes one category to its own file.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	workspace string
	config    Config
	configMu  sync.RWMutex
	level     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	console   *zap.Logger
	consoleMu sync.RWMutex
)

// Initialize sets up the logging directory for the given workspace.
// It is a silent no-op when debug mode is off.
func Initialize(ws string, cfg Config) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	CloseAll()

	configMu.Lock()
	workspace = ws
	logsDir = filepath.Join(ws, ".inject", "logs")
	config = cfg
	if lvl, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level.SetLevel(lvl)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}
	configMu.Unlock()

	if !cfg.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== injector logging initialized ===")
	boot.Info("Workspace: %s", ws)
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", level.Level())
	return nil
}

// SetConsole mirrors warnings and errors of every category to l.
// Pass nil to stop mirroring.
func SetConsole(l *zap.Logger) {
	consoleMu.Lock()
	defer consoleMu.Unlock()
	console = l
}

// IsDebugMode returns whether file logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}
	if config.Categories == nil {
		return true
	}
	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// The returned logger only mirrors to the console if file logging is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	core := zapcore.NewCore(encoder(), zapcore.AddSync(file), level)
	l := &Logger{
		category: category,
		file:     file,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

func encoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	configMu.RLock()
	defer configMu.RUnlock()
	if config.Format == "json" {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func (l *Logger) mirror(lvl zapcore.Level, msg string) {
	consoleMu.RLock()
	c := console
	consoleMu.RUnlock()
	if c == nil {
		return
	}
	if ce := c.Check(lvl, msg); ce != nil {
		ce.Write(zap.String("category", string(l.category)))
	}
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

// Warn logs a warning message and mirrors it to the console
func (l *Logger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.mirror(zapcore.WarnLevel, msg)
	if l.sugar != nil {
		l.sugar.Warn(msg)
	}
}

// Error logs an error message and mirrors it to the console
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.mirror(zapcore.ErrorLevel, msg)
	if l.sugar != nil {
		l.sugar.Error(msg)
	}
}

// With returns a logger carrying structured key-value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...), file: l.file}
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
	CloseAudit()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Scaffold logs to the scaffold category
func Scaffold(format string, args ...interface{}) {
	Get(CategoryScaffold).Info(format, args...)
}

// ScaffoldDebug logs debug to the scaffold category
func ScaffoldDebug(format string, args ...interface{}) {
	Get(CategoryScaffold).Debug(format, args...)
}

// ScaffoldWarn logs a warning to the scaffold category
func ScaffoldWarn(format string, args ...interface{}) {
	Get(CategoryScaffold).Warn(format, args...)
}

// Source logs to the source category
func Source(format string, args ...interface{}) {
	Get(CategorySource).Info(format, args...)
}

// SourceDebug logs debug to the source category
func SourceDebug(format string, args ...interface{}) {
	Get(CategorySource).Debug(format, args...)
}

// Imports logs to the imports category
func Imports(format string, args ...interface{}) {
	Get(CategoryImports).Info(format, args...)
}

// ImportsDebug logs debug to the imports category
func ImportsDebug(format string, args ...interface{}) {
	Get(CategoryImports).Debug(format, args...)
}

// Registry logs to the registry category
func Registry(format string, args ...interface{}) {
	Get(CategoryRegistry).Info(format, args...)
}

// RegistryDebug logs debug to the registry category
func RegistryDebug(format string, args ...interface{}) {
	Get(CategoryRegistry).Debug(format, args...)
}

// Inject logs to the inject category
func Inject(format string, args ...interface{}) {
	Get(CategoryInject).Info(format, args...)
}

// InjectDebug logs debug to the inject category
func InjectDebug(format string, args ...interface{}) {
	Get(CategoryInject).Debug(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}

// WatchDebug logs debug to the watch category
func WatchDebug(format string, args ...interface{}) {
	Get(CategoryWatch).Debug(format, args...)
}

// Timer measures an operation and logs it on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing op in category.
func StartTimer(category Category, op string) *Timer {
	return &Timer{category: category, op: op, start: time.Now()}
}

// Stop logs the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
