// Package logging provides the shared zap logger for nbook. The console
// owns the terminal, so log output goes to a file under ~/.nbook/logs and
// is a no-op unless debug logging is enabled.
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

// Category names a subsystem for scoped loggers.
type Category string

const (
	CategoryBoot    Category = "boot"
	CategoryConsole Category = "console"
	CategoryExport  Category = "export"
	CategoryStore   Category = "store"
	CategoryInterp  Category = "interpreter"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Initialize builds the file-backed logger. With debug false the root
// logger stays a no-op. Safe to call more than once; the last call wins.
func Initialize(debug bool) error {
	if !debug {
		mu.Lock()
		root = zap.NewNop()
		mu.Unlock()
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to locate home directory: %w", err)
	}
	logsDir := filepath.Join(home, ".nbook", "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{
		filepath.Join(logsDir, time.Now().Format("2006-01-02")+".log"),
	}
	cfg.ErrorOutputPaths = cfg.OutputPaths

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

// Get returns a logger scoped to the given category.
func Get(category Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(string(category))
}

// Sync flushes buffered log entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
