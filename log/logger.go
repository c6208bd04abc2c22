// Package log is a thin wrapper that keeps the rest of the module talking to
// a small, stable logging surface (Logln/Logf/Warnf) while the actual
// backend is a structured logger. Callers that only ever held an io.Writer
// in the original shape still work: New(w) degrades to plain text.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used by environment and installer. It
// never returns an error: logging a failed
// repository refresh or a best-effort legacy-asset cleanup is itself not
// allowed to fail a caller's operation.
type Logger struct {
	entry *logrus.Entry
}

// New returns a Logger that writes structured (text) log lines to w.
func New(w io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{entry: logrus.NewEntry(l)}
}

// With returns a Logger with an additional structured field attached to
// every subsequent line, e.g. log.With("package", name).
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// Logln logs a line at info level.
func (l *Logger) Logln(args ...interface{}) {
	l.entry.Infoln(args...)
}

// Logf logs a formatted line at info level.
func (l *Logger) Logf(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warnf logs a formatted line at warning level. Used for non-fatal
// conditions the spec calls out explicitly: a failed repository refresh
// that falls back to the prior cache, or a legacy-asset removal that
// couldn't complete.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}
