// Package logging provides file-based logging for taskdeck. It writes to a
// global log file (<dataDir>/logs/taskdeck.log) and, for sync activity, to
// per-provider log files (<dataDir>/logs/sync-<provider>.log).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okui/taskdeck/internal/domain"
)

// Ensure Logger implements domain.Logger.
var _ domain.Logger = (*Logger)(nil)

// Logger writes formatted entries to append-only log files.
// Fields are ordered to minimize memory padding.
type Logger struct {
	globalFile    *os.File
	providerFiles map[string]*os.File
	dataDir       string
	mu            sync.Mutex
	level         slog.Level
}

// New creates a Logger rooted at the data directory. An empty dataDir
// disables logging entirely.
func New(dataDir string, level slog.Level) *Logger {
	return &Logger{
		dataDir:       dataDir,
		level:         level,
		providerFiles: make(map[string]*os.File),
	}
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) logsDir() string {
	return filepath.Join(l.dataDir, "logs")
}

func (l *Logger) ensureFile(scope string) (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if scope == "" {
		if l.globalFile != nil {
			return l.globalFile, nil
		}
	} else if f, ok := l.providerFiles[scope]; ok {
		return f, nil
	}

	if err := os.MkdirAll(l.logsDir(), 0o750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	name := "taskdeck.log"
	if scope != "" {
		name = "sync-" + scope + ".log"
	}
	f, err := os.OpenFile(filepath.Join(l.logsDir(), name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if scope == "" {
		l.globalFile = f
	} else {
		l.providerFiles[scope] = f
	}
	return f, nil
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for name, f := range l.providerFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.providerFiles, name)
	}
	return lastErr
}

// formatEntry renders one line.
// Format: [2025-12-30 09:32:51] [INFO] [sync:todoist] [category] message
func formatEntry(t time.Time, level slog.Level, scope, category, msg string) string {
	scopeStr := "app"
	if scope != "" {
		scopeStr = "sync:" + scope
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"),
		levelToString(level),
		scopeStr,
		category,
		msg,
	)
}

func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// log writes one entry to the global log, and to the provider log when a
// scope is given.
func (l *Logger) log(level slog.Level, scope, category, msg string) {
	if l.dataDir == "" || level < l.level {
		return
	}

	entry := formatEntry(time.Now(), level, scope, category, msg)
	if gf, err := l.ensureFile(""); err == nil {
		_, _ = io.WriteString(gf, entry)
	}
	if scope != "" {
		if pf, err := l.ensureFile(scope); err == nil {
			_, _ = io.WriteString(pf, entry)
		}
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(scope, category, msg string) {
	l.log(slog.LevelDebug, scope, category, msg)
}

// Info logs an info message.
func (l *Logger) Info(scope, category, msg string) {
	l.log(slog.LevelInfo, scope, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(scope, category, msg string) {
	l.log(slog.LevelWarn, scope, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(scope, category, msg string) {
	l.log(slog.LevelError, scope, category, msg)
}
