package log

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// Entry is the logging object backing this package. It wraps a logrus entry
// so derived entries (WithField et al.) stay within this package's type.
type Entry struct {
	entry     logrus.Entry
	isTesting bool
}

func (e *Entry) SetLevel(level logrus.Level) {
	e.entry.Logger.SetLevel(level)
}

func (e *Entry) Level() logrus.Level {
	return e.entry.Logger.GetLevel()
}

func (e *Entry) SetOutput(w io.Writer) {
	e.entry.Logger.SetOutput(w)
}

func (e *Entry) AddHook(hook logrus.Hook) {
	e.entry.Logger.AddHook(hook)
}

// WithField creates a child entry annotated with the provided field.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{entry: *e.entry.WithField(key, value), isTesting: e.isTesting}
}

// WithFields creates a child entry annotated with the provided fields.
func (e *Entry) WithFields(fields F) *Entry {
	return &Entry{entry: *e.entry.WithFields(logrus.Fields(fields)), isTesting: e.isTesting}
}

// WithStack annotates the entry with a stack field when the provided error
// carries one (pkg/errors style); it falls back to "unknown" otherwise.
func (e *Entry) WithStack(err error) *Entry {
	stack := "unknown"
	if stackProvider, ok := err.(interface{ Stack() []byte }); ok {
		stack = string(stackProvider.Stack())
	}

	return e.WithField("stack", stack)
}

func (e *Entry) Debug(args ...interface{})                 { e.entry.Debug(args...) }
func (e *Entry) Debugf(format string, args ...interface{}) { e.entry.Debugf(format, args...) }
func (e *Entry) Info(args ...interface{})                  { e.entry.Info(args...) }
func (e *Entry) Infof(format string, args ...interface{})  { e.entry.Infof(format, args...) }
func (e *Entry) Warn(args ...interface{})                  { e.entry.Warn(args...) }
func (e *Entry) Warnf(format string, args ...interface{})  { e.entry.Warnf(format, args...) }
func (e *Entry) Error(args ...interface{})                 { e.entry.Error(args...) }
func (e *Entry) Errorf(format string, args ...interface{}) { e.entry.Errorf(format, args...) }
func (e *Entry) Fatal(args ...interface{})                 { e.entry.Fatal(args...) }
func (e *Entry) Fatalf(format string, args ...interface{}) { e.entry.Fatalf(format, args...) }
func (e *Entry) Panicf(format string, args ...interface{}) { e.entry.Panicf(format, args...) }

// StartTest shifts the logger into test mode: output is suppressed and
// emitted entries are captured. The returned function ends the test, restores
// the logger, and returns whatever was captured while testing.
func (e *Entry) StartTest(level logrus.Level) func() []logrus.Entry {
	if e.isTesting {
		panic(fmt.Errorf("cannot start logger test: already testing"))
	}
	e.isTesting = true

	hook := &test.Hook{}
	e.entry.Logger.AddHook(hook)

	oldOut := e.entry.Logger.Out
	e.entry.Logger.SetOutput(io.Discard)

	oldLevel := e.entry.Logger.GetLevel()
	e.entry.Logger.SetLevel(level)

	return func() []logrus.Entry {
		e.entry.Logger.SetLevel(oldLevel)
		e.entry.Logger.SetOutput(oldOut)
		e.entry.Logger.ReplaceHooks(make(logrus.LevelHooks))
		e.isTesting = false

		entries := make([]logrus.Entry, len(hook.Entries))
		copy(entries, hook.Entries)
		return entries
	}
}
