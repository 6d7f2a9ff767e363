package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var (
	// logger is the global logger instance
	logger *Logger
	once   sync.Once
)

// Logger wraps logrus with printf-style helpers and color support
type Logger struct {
	*logrus.Logger
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	bold   *color.Color
}

// New returns the process-wide logger, creating it on first use
func New() *Logger {
	once.Do(func() {
		logger = newLogger()
	})
	return logger
}

func newLogger() *Logger {
	l := &Logger{
		Logger: logrus.New(),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		bold:   color.New(color.Bold),
	}

	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006/01/02 15:04:05",
		FullTimestamp:   true,
		ForceColors:     true,
		DisableSorting:  true,
	})

	if os.Getenv("DEBUG") == "true" {
		l.SetLevel(logrus.DebugLevel)
		l.Info("Debug logging enabled")
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// SetLevelName sets the level from a name such as "debug" or "warn".
// DEBUG=true in the environment always wins.
func (l *Logger) SetLevelName(name string) error {
	if os.Getenv("DEBUG") == "true" || name == "" {
		return nil
	}
	level, err := logrus.ParseLevel(strings.ToLower(name))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	l.SetLevel(level)
	return nil
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Logger.Debug(fmt.Sprintf(format, args...))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Logger.Info(fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.Logger.Warn(fmt.Sprintf(format, args...))
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Logger.Error(fmt.Sprintf(format, args...))
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.Logger.Fatal(fmt.Sprintf(format, args...))
}

// Success logs an info message highlighted in green
func (l *Logger) Success(format string, args ...interface{}) {
	l.Logger.Info(l.green.Sprintf(format, args...))
}

// Highlight returns s in bold, for use inside log messages
func (l *Logger) Highlight(s string) string {
	return l.bold.Sprint(s)
}

// IsDebugEnabled returns whether debug logging is enabled
func (l *Logger) IsDebugEnabled() bool {
	return l.GetLevel() >= logrus.DebugLevel
}
