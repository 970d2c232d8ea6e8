// Package log provides leveled, source-scoped logging in the shape of
// rclone's fs.Logf/Debugf/Infof/Errorf family, backed by logrus.
package log

import (
	"github.com/sirupsen/logrus"
)

// Subject is anything loggable as the origin of a log line: a GlobalPath, a
// cache key, a table handle. Matches rclone's convention of passing the
// fs.Fs/fs.Object as the first Logf argument.
type Subject interface {
	String() string
}

var logger = logrus.StandardLogger()

// SetLevel adjusts the process-wide log level.
func SetLevel(level logrus.Level) {
	logger.SetLevel(level)
}

func fields(subject Subject) logrus.Fields {
	if subject == nil {
		return logrus.Fields{}
	}
	return logrus.Fields{"subject": subject.String()}
}

// Debugf logs a debug-level line scoped to subject.
func Debugf(subject Subject, format string, args ...interface{}) {
	logger.WithFields(fields(subject)).Debugf(format, args...)
}

// Infof logs an info-level line scoped to subject.
func Infof(subject Subject, format string, args ...interface{}) {
	logger.WithFields(fields(subject)).Infof(format, args...)
}

// Errorf logs an error-level line scoped to subject. The error is still
// returned by the caller; this never swallows it.
func Errorf(subject Subject, format string, args ...interface{}) {
	logger.WithFields(fields(subject)).Errorf(format, args...)
}

// stringSubject lets call sites log against a plain string without
// allocating a wrapper type at each call.
type stringSubject string

func (s stringSubject) String() string { return string(s) }

// Logger is a Subject with its own Debugf/Infof/Errorf methods, for call
// sites that want to log repeatedly against one fixed subject (a package
// name, a file path) without repeating it at every call.
type Logger struct {
	subject Subject
}

func (l *Logger) String() string { return l.subject.String() }

func (l *Logger) Debugf(format string, args ...interface{}) { Debugf(l.subject, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { Infof(l.subject, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { Errorf(l.subject, format, args...) }

// Of wraps s as a Subject usable either as a plain Subject argument to
// Debugf/Infof/Errorf, or as a *Logger bound to s for repeated logging.
func Of(s string) *Logger { return &Logger{subject: stringSubject(s)} }
