// Package logger provides component-scoped diagnostic logging. Debug and
// Info lines are gated on a verbosity check supplied by the caller, so quiet
// runs only see warnings and errors.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// VerboseChecker reports whether verbose output is enabled.
type VerboseChecker interface {
	IsVerbose() bool
}

// Logger writes leveled, component-tagged lines to a writer, stderr by
// default.
type Logger struct {
	component string
	verbose   VerboseChecker
	writer    io.Writer
}

// Field is a key-value pair appended to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// New creates a logger for a component.
func New(component string, verbose VerboseChecker) *Logger {
	return &Logger{component: component, verbose: verbose, writer: os.Stderr}
}

// NewWithCallback creates a logger whose verbosity is read from a callback.
func NewWithCallback(component string, verbose func() bool) *Logger {
	return New(component, &callbackChecker{callback: verbose})
}

// WithComponent returns a copy of the logger tagged with another component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{component: component, verbose: l.verbose, writer: l.writer}
}

// SetWriter redirects output, mainly for tests.
func (l *Logger) SetWriter(w io.Writer) {
	l.writer = w
}

type callbackChecker struct {
	callback func() bool
}

func (c *callbackChecker) IsVerbose() bool {
	return c.callback != nil && c.callback()
}

// Debug logs a debug message when verbose is enabled.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.isVerbose() {
		l.log("DEBUG", msg, nil, args...)
	}
}

// Info logs an informational message when verbose is enabled.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.isVerbose() {
		l.log("INFO", msg, nil, args...)
	}
}

// InfoWithFields logs an informational message with structured fields when
// verbose is enabled.
func (l *Logger) InfoWithFields(msg string, fields []Field, args ...interface{}) {
	if l.isVerbose() {
		l.log("INFO", msg, fields, args...)
	}
}

// Warn logs a warning. Warnings are always shown.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log("WARN", msg, nil, args...)
}

// Error logs an error. Errors are always shown.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log("ERROR", msg, nil, args...)
}

func (l *Logger) isVerbose() bool {
	return l.verbose != nil && l.verbose.IsVerbose()
}

func (l *Logger) log(level, msg string, fields []Field, args ...interface{}) {
	component := l.component
	if component == "" {
		component = "main"
	}

	var fieldsStr string
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		fieldsStr = " [" + strings.Join(parts, " ") + "]"
	}

	line := fmt.Sprintf("[%s] %s [%s] %s%s\n",
		time.Now().Format("15:04:05.000"), level, component,
		fmt.Sprintf(msg, args...), fieldsStr)

	// nothing useful to do if the log write itself fails
	_, _ = fmt.Fprint(l.writer, line)
}

// F builds a field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Count builds a count field.
func Count(value int) Field {
	return Field{Key: "count", Value: value}
}

// Err builds an error field.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}
