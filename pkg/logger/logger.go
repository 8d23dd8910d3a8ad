// Package logger is the process-wide run log for terrain.
//
// Nothing is written until Init is called. Level filters messages below it;
// the before-suite hook uses Silence to drop debug chatter the way a test run
// mutes application logging.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level is a log severity.
type Level int

// Levels, lowest first.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

// String returns the level tag used in log lines.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "OFF"
	}
}

// ParseLevel parses debug, info, warn, error or off (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "off", "none":
		return LevelOff, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

var (
	globalLogger *log.Logger
	logFile      *os.File
	level        = LevelDebug
	mu           sync.Mutex
)

// Init initializes the global logger with the specified log file path.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	// Close previous log file if exists
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) //#nosec G302 G304 -- run log path from config
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	globalLogger = log.New(f, "", log.Ltime|log.Lmicroseconds)

	return nil
}

// InitWriter directs the global logger to w (tests, stderr).
func InitWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger = log.New(w, "", log.Ltime|log.Lmicroseconds)
}

// Close closes the log file and stops logging.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger = nil
}

// SetLevel sets the minimum level written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// GetLevel returns the minimum level written.
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return level
}

// Silence drops debug messages unless verbose is set.
func Silence(verbose bool) {
	if verbose {
		SetLevel(LevelDebug)
		return
	}
	SetLevel(LevelInfo)
}

func logf(l Level, format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil && l >= level {
		globalLogger.Printf("["+l.String()+"] "+format, v...)
	}
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	logf(LevelInfo, format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	logf(LevelDebug, format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	logf(LevelError, format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	logf(LevelWarn, format, v...)
}

// GetWriter returns the underlying writer for use by drivers.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	if globalLogger != nil {
		return globalLogger.Writer()
	}
	return io.Discard
}
