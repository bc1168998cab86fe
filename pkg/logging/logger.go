// Package logging provides per-component file logging for grimnote.
// All components of a run append to one log file named after the run's
// session id, so a single file tells the whole story of an attachment.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// sessionID identifies the current run; shared by all components.
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is set by Configure; empty means stderr-only logging.
	logDir   string
	logDirMu sync.Mutex
)

// SessionID returns the run's session id, creating it on first use.
func SessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// Configure sets the directory that log files are written to. Loggers
// created before Configure write to stderr.
func Configure(dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logDirMu.Lock()
	logDir = dir
	logDirMu.Unlock()
	return nil
}

// Logger writes structured log lines for a single component.
type Logger struct {
	component string
	logger    *log.Logger
	file      *os.File
	mu        sync.Mutex
	closeOnce sync.Once
}

// NewLogger creates a logger for a component. When no log directory is
// configured, or the log file cannot be opened, the logger falls back to
// stderr rather than failing the caller.
func NewLogger(component string) *Logger {
	logDirMu.Lock()
	dir := logDir
	logDirMu.Unlock()

	if dir == "" {
		return &Logger{
			component: component,
			logger:    log.New(os.Stderr, "", 0),
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-grimnote.log", SessionID()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		l := &Logger{
			component: component,
			logger:    log.New(os.Stderr, "", 0),
		}
		l.Warnf("failed to open log file %s, falling back to stderr: %v", path, err)
		return l
	}

	return &Logger{
		component: component,
		logger:    log.New(file, "", 0),
		file:      file,
	}
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write("DEBUG", format, v...)
}

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write("INFO", format, v...)
}

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write("WARN", format, v...)
}

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write("ERROR", format, v...)
}

// Close closes the underlying log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
