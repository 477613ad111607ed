// Package logging wraps logrus behind the small leveled interface the sensor
// core logs through. Fatalf is a level, not an exit: a dead sensor must not
// take the whole daemon down.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Tracef(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// SetLevel configures the process-wide logrus level from a config string.
func SetLevel(level string) error {
	if level == "" {
		logrus.SetLevel(logrus.InfoLevel)
		return nil
	}
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	logrus.SetLevel(lv)
	return nil
}

// New returns a logger tagging every line with the component name.
func New(component string) Logger {
	return &logrusLogger{entry: logrus.WithField("component", component)}
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Tracef(format string, args ...any) { l.entry.Tracef(format, args...) }
func (l *logrusLogger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }

// Fatalf emits at fatal level without calling os.Exit.
func (l *logrusLogger) Fatalf(format string, args ...any) {
	l.entry.Logf(logrus.FatalLevel, format, args...)
}

// Recorder captures leveled messages for assertions in tests.
type Recorder struct {
	mu      sync.Mutex
	entries []RecordedEntry
}

type RecordedEntry struct {
	Level   string
	Message string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, RecordedEntry{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (r *Recorder) Tracef(format string, args ...any) { r.record("trace", format, args...) }
func (r *Recorder) Debugf(format string, args ...any) { r.record("debug", format, args...) }
func (r *Recorder) Infof(format string, args ...any)  { r.record("info", format, args...) }
func (r *Recorder) Warnf(format string, args ...any)  { r.record("warn", format, args...) }
func (r *Recorder) Errorf(format string, args ...any) { r.record("error", format, args...) }
func (r *Recorder) Fatalf(format string, args ...any) { r.record("fatal", format, args...) }

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []RecordedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedEntry(nil), r.entries...)
}

// Has reports whether a message at the level containing substr was recorded.
func (r *Recorder) Has(level, substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
