package internal

import (
	"log"
	"os"
	"strings"
)

// LogLevel orders verbosity from quietest to noisiest
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelTrace:
		return "TRACE"
	default:
		return "INFO"
	}
}

// ParseLevel maps a LOG_LEVEL value to a level; anything unrecognized
// (including empty) means INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LogLevelError
	case "WARN":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	case "TRACE":
		return LogLevelTrace
	default:
		return LogLevelInfo
	}
}

// Logger writes leveled, printf-style messages. Runs are console tools, so
// everything goes to stderr and the report itself owns stdout.
type Logger struct {
	level LogLevel
	out   *log.Logger
}

// NewLogger creates a logger emitting at or below the given level
func NewLogger(level LogLevel) *Logger {
	return &Logger{
		level: level,
		out:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

// NewDefaultLogger creates a logger with its level taken from LOG_LEVEL
func NewDefaultLogger() *Logger {
	return NewLogger(ParseLevel(os.Getenv("LOG_LEVEL")))
}

func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	if level <= l.level {
		l.out.Printf("["+level.String()+"] "+format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) { l.logf(LogLevelError, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.logf(LogLevelWarn, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.logf(LogLevelInfo, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.logf(LogLevelDebug, format, args...) }
func (l *Logger) Trace(format string, args ...interface{}) { l.logf(LogLevelTrace, format, args...) }

// Level returns the configured verbosity
func (l *Logger) Level() LogLevel {
	return l.level
}

// DefaultLogger is the process-wide logger used by the drivers and services
var DefaultLogger = NewDefaultLogger()
