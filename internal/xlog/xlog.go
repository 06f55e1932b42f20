// Package xlog provides the small colored console logger used throughout
// autoissue, in the same spirit as the teacher's printStatus/debugLog
// helpers: component-tagged lines, color by severity, a debug flag gated by
// an environment variable.
package xlog

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Debug reports whether verbose logging is enabled via AUTOISSUE_DEBUG.
func Debug() bool {
	return os.Getenv("AUTOISSUE_DEBUG") != ""
}

// Logger writes component-tagged, color-coded lines to stderr.
type Logger struct {
	component string
}

// New returns a Logger tagged with the given component name, e.g.
// New("scheduler") prefixes every line with "[scheduler]".
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) tag() string {
	return fmt.Sprintf("[%s]", l.component)
}

// Info prints an untinted informational line.
func (l *Logger) Info(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", l.tag(), fmt.Sprintf(format, args...))
}

// Success prints a green line.
func (l *Logger) Success(format string, args ...interface{}) {
	c := color.New(color.FgGreen)
	fmt.Fprintf(os.Stderr, "%s %s\n", l.tag(), c.Sprint(fmt.Sprintf(format, args...)))
}

// Warn prints a yellow line.
func (l *Logger) Warn(format string, args ...interface{}) {
	c := color.New(color.FgYellow)
	fmt.Fprintf(os.Stderr, "%s %s\n", l.tag(), c.Sprint(fmt.Sprintf(format, args...)))
}

// Error prints a red line.
func (l *Logger) Error(format string, args ...interface{}) {
	c := color.New(color.FgRed)
	fmt.Fprintf(os.Stderr, "%s %s\n", l.tag(), c.Sprint(fmt.Sprintf(format, args...)))
}

// Debugf prints only when AUTOISSUE_DEBUG is set.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if !Debug() {
		return
	}
	c := color.New(color.Faint)
	fmt.Fprintf(os.Stderr, "%s %s\n", l.tag(), c.Sprint(fmt.Sprintf(format, args...)))
}
