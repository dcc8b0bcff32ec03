package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents logging severity. Messages below a logger's level are
// dropped.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	// LogLevelNone disables all logging
	LogLevelNone
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "NONE"}

// String returns the upper-case level name.
func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("UNKNOWN(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel converts a level name such as "debug" or "WARN" into a LogLevel.
// The empty string means info.
func ParseLevel(s string) (LogLevel, error) {
	name := strings.TrimSpace(s)
	switch strings.ToLower(name) {
	case "":
		return LogLevelInfo, nil
	case "warning":
		return LogLevelWarn, nil
	case "off", "disable":
		return LogLevelNone, nil
	}
	for i, n := range levelNames {
		if strings.EqualFold(n, name) {
			return LogLevel(i), nil
		}
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger is the printf-style logger used by the graph executor, the tool
// registry and the model adapters.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// DefaultLogger writes "[toolgraph] [LEVEL] message" lines through the
// standard library logger.
type DefaultLogger struct {
	logger *log.Logger
	level  LogLevel
}

// NewDefaultLogger creates a logger writing to stderr.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return NewCustomLogger(os.Stderr, level)
}

// NewCustomLogger creates a logger writing to out.
func NewCustomLogger(out io.Writer, level LogLevel) *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(out, "[toolgraph] ", log.LstdFlags),
		level:  level,
	}
}

func (l *DefaultLogger) logf(level LogLevel, format string, v []any) {
	if level < l.level {
		return
	}
	l.logger.Printf("["+level.String()+"] "+format, v...)
}

func (l *DefaultLogger) Debug(format string, v ...any) { l.logf(LogLevelDebug, format, v) }
func (l *DefaultLogger) Info(format string, v ...any)  { l.logf(LogLevelInfo, format, v) }
func (l *DefaultLogger) Warn(format string, v ...any)  { l.logf(LogLevelWarn, format, v) }
func (l *DefaultLogger) Error(format string, v ...any) { l.logf(LogLevelError, format, v) }

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (*NoOpLogger) Debug(string, ...any) {}
func (*NoOpLogger) Info(string, ...any)  {}
func (*NoOpLogger) Warn(string, ...any)  {}
func (*NoOpLogger) Error(string, ...any) {}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = NewDefaultLogger(LogLevelInfo)
)

// SetDefaultLogger replaces the package-level logger. A nil logger disables
// package-level logging.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// GetDefaultLogger returns the package-level logger.
func GetDefaultLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func Debug(format string, v ...any) { GetDefaultLogger().Debug(format, v...) }
func Info(format string, v ...any)  { GetDefaultLogger().Info(format, v...) }
func Warn(format string, v ...any)  { GetDefaultLogger().Warn(format, v...) }
func Error(format string, v ...any) { GetDefaultLogger().Error(format, v...) }
