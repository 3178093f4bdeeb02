package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents an enumeration of log levels
type LogLevel int

const (
	Critical LogLevel = 50
	Error    LogLevel = 40
	Warning  LogLevel = 30
	Info     LogLevel = 20
	Debug    LogLevel = 10
	NotSet   LogLevel = 0
)

var (
	defaultLevel   = Info
	defaultLevelMu sync.RWMutex
	output         io.Writer = os.Stdout
)

func init() {
	localEnv := os.Getenv("LOCAL")
	if strings.ToLower(localEnv) == "true" || localEnv == "1" {
		SetDefaultLevel(Debug)
	}
}

// ParseLevel maps a LOG_LEVEL value to a LogLevel. Unknown values yield Info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "info", "":
		return Info
	case "warn", "warning":
		return Warning
	case "error":
		return Error
	case "critical", "fatal":
		return Critical
	}
	return Info
}

// SetDefaultLevel sets the level used by loggers without an explicit one
func SetDefaultLevel(level LogLevel) {
	defaultLevelMu.Lock()
	defer defaultLevelMu.Unlock()
	defaultLevel = level
}

func currentDefaultLevel() LogLevel {
	defaultLevelMu.RLock()
	defer defaultLevelMu.RUnlock()
	return defaultLevel
}

// Logger writes leveled key/value lines prefixed with a component name
type Logger struct {
	prefix   string
	logger   *log.Logger
	logLevel LogLevel // NotSet follows the package default
}

// NewLogger creates a new logger with a given prefix
func NewLogger(prefix string, logLevel ...LogLevel) *Logger {
	level := NotSet
	if len(logLevel) > 0 {
		level = logLevel[0]
	}
	return newLogger(prefix, output, level)
}

func newLogger(prefix string, w io.Writer, level LogLevel) *Logger {
	return &Logger{
		prefix:   prefix,
		logger:   log.New(w, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
		logLevel: level,
	}
}

// Enabled reports whether messages at level would be written
func (l *Logger) Enabled(level LogLevel) bool {
	threshold := l.logLevel
	if threshold == NotSet {
		threshold = currentDefaultLevel()
	}
	return level >= threshold
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keyvals ...any) {
	l.write(Debug, "DEBUG", msg, keyvals)
}

// Info logs an informational message
func (l *Logger) Info(msg string, keyvals ...any) {
	l.write(Info, "INFO", msg, keyvals)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keyvals ...any) {
	l.write(Warning, "WARN", msg, keyvals)
}

// Error logs an error message
func (l *Logger) Error(msg string, keyvals ...any) {
	l.write(Error, "ERROR", msg, keyvals)
}

func (l *Logger) write(level LogLevel, tag, msg string, keyvals []any) {
	if !l.Enabled(level) {
		return
	}
	l.logger.Println(formatMessage(tag, msg, keyvals...))
}

// formatMessage formats a message with key-value pairs
func formatMessage(level, msg string, keyvals ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	for i := 0; i < len(keyvals); i += 2 {
		if i+1 < len(keyvals) {
			fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
		} else {
			fmt.Fprintf(&b, " %v=(missing)", keyvals[i])
		}
	}
	return b.String()
}
