package core

import (
	"fmt"
	"os"
	"sort"
	"time"
)

var loggerInstance Logger = *NewDevelopmentLogger() // default to development logger

// SetLogger sets the global logger instance
func SetLogger(logger Logger) {
	loggerInstance = logger
}

// GetLogger retrieves the global logger instance
func GetLogger() *Logger {
	return &loggerInstance
}

type Logger struct {
	handlerFunc func(level string, msg string, attrs map[string]any)
	attrs       map[string]any
}

func NewLogger(handler func(level string, msg string, attrs map[string]any)) *Logger {
	return &Logger{
		handlerFunc: handler,
		attrs:       make(map[string]any),
	}
}

// NewDevelopmentLogger creates a logger with plain console output.
func NewDevelopmentLogger() *Logger {
	handler := func(level string, msg string, attrs map[string]any) {
		timestamp := time.Now().Format(time.RFC3339)
		attrStr := ""
		if len(attrs) > 0 {
			keys := make([]string, 0, len(attrs))
			for k := range attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			attrStr = " |"
			for _, k := range keys {
				attrStr += fmt.Sprintf(" %s=%v", k, attrs[k])
			}
		}
		logLine := fmt.Sprintf("%s [%s] %s%s\n", timestamp, level, msg, attrStr)
		if level == "FATAL" {
			fmt.Fprint(os.Stderr, logLine)
			os.Exit(1)
		}
		fmt.Print(logLine)
	}

	return &Logger{
		handlerFunc: handler,
		attrs:       make(map[string]any),
	}
}

func (l *Logger) log(level string, msg string, args ...any) {
	if l.handlerFunc == nil {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.handlerFunc(level, msg, l.attrs)
}

func (l *Logger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log("INFO", msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log("WARN", msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }
func (l *Logger) Fatal(msg string, args ...any) { l.log("FATAL", msg, args...) }

// With returns a child logger that includes attrs on every line.
func (l *Logger) With(attrs map[string]any) *Logger {
	combinedAttrs := make(map[string]any, len(l.attrs)+len(attrs))
	for k, v := range l.attrs {
		combinedAttrs[k] = v
	}
	for k, v := range attrs {
		combinedAttrs[k] = v
	}
	return &Logger{
		handlerFunc: l.handlerFunc,
		attrs:       combinedAttrs,
	}
}

// Sync is a no-op for the console logger.
func (l *Logger) Sync() error {
	return nil
}
