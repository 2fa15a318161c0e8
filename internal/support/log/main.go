// Package log provides the logging facilities used across the fikir backend.
// It wraps logrus with a context-scoped entry so request-bound fields (request
// id, user id) follow the call chain via log.Ctx(ctx).
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

// DefaultLogger is the logger used by the package-level functions and by
// Ctx when no logger has been set on the context.
var DefaultLogger *Entry

// F wraps the logrus.Fields type for convenience.
type F logrus.Fields

// Level re-exports, so callers don't need to import logrus alongside this
// package just to pick a verbosity.
const (
	PanicLevel = logrus.PanicLevel
	FatalLevel = logrus.FatalLevel
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
	TraceLevel = logrus.TraceLevel
)

type contextKey int

const loggerKey contextKey = iota

func init() {
	DefaultLogger = New()
}

// New creates a new logger, logging to stdout at INFO level.
func New() *Entry {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.Formatter.(*logrus.TextFormatter).FullTimestamp = true

	return &Entry{entry: *logrus.NewEntry(l)}
}

// Set installs the provided entry on the context, to be retrieved later with
// Ctx.
func Set(ctx context.Context, e *Entry) context.Context {
	return context.WithValue(ctx, loggerKey, e)
}

// Ctx returns the logger bound to the provided context, defaulting to
// DefaultLogger when none is bound.
func Ctx(ctx context.Context) *Entry {
	found := ctx.Value(loggerKey)
	if found == nil {
		return DefaultLogger
	}

	return found.(*Entry)
}

func SetLevel(level logrus.Level) { DefaultLogger.SetLevel(level) }

func Debug(args ...interface{})                 { DefaultLogger.Debug(args...) }
func Debugf(format string, args ...interface{}) { DefaultLogger.Debugf(format, args...) }
func Info(args ...interface{})                  { DefaultLogger.Info(args...) }
func Infof(format string, args ...interface{})  { DefaultLogger.Infof(format, args...) }
func Warn(args ...interface{})                  { DefaultLogger.Warn(args...) }
func Warnf(format string, args ...interface{})  { DefaultLogger.Warnf(format, args...) }
func Error(args ...interface{})                 { DefaultLogger.Error(args...) }
func Errorf(format string, args ...interface{}) { DefaultLogger.Errorf(format, args...) }
func Fatal(args ...interface{})                 { DefaultLogger.Fatal(args...) }
func Fatalf(format string, args ...interface{}) { DefaultLogger.Fatalf(format, args...) }
func Panicf(format string, args ...interface{}) { DefaultLogger.Panicf(format, args...) }
