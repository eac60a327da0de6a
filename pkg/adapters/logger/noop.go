package logger

import (
	"fmt"
	"sync"

	"github.com/user/framenav/pkg/ports"
)

// NoopLogger discards everything. The CLI uses it for --quiet.
type NoopLogger struct{}

func NewNoop() *NoopLogger { return &NoopLogger{} }

func (*NoopLogger) Debug(string, ...interface{}) {}
func (*NoopLogger) Info(string, ...interface{})  {}
func (*NoopLogger) Warn(string, ...interface{})  {}
func (*NoopLogger) Error(string, ...interface{}) {}

func (l *NoopLogger) WithComponent(string) ports.Logger { return l }

// Entry is one message captured by a Recorder.
type Entry struct {
	Level     ports.LogLevel
	Component string
	Message   string
}

// Recorder keeps every message in memory, untranslated. Component loggers
// derived from it share its entries.
type Recorder struct {
	component string
	shared    *recording
}

type recording struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder {
	return &Recorder{shared: &recording{}}
}

func (r *Recorder) Debug(msg string, args ...interface{}) { r.add(ports.LevelDebug, msg, args) }
func (r *Recorder) Info(msg string, args ...interface{})  { r.add(ports.LevelInfo, msg, args) }
func (r *Recorder) Warn(msg string, args ...interface{})  { r.add(ports.LevelWarn, msg, args) }
func (r *Recorder) Error(msg string, args ...interface{}) { r.add(ports.LevelError, msg, args) }

func (r *Recorder) WithComponent(component string) ports.Logger {
	return &Recorder{component: component, shared: r.shared}
}

func (r *Recorder) add(level ports.LogLevel, msg string, args []interface{}) {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	r.shared.entries = append(r.shared.entries, Entry{
		Level:     level,
		Component: r.component,
		Message:   fmt.Sprintf(msg, args...),
	})
}

// Entries returns the messages at or above level, oldest first.
func (r *Recorder) Entries(level ports.LogLevel) []Entry {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	var out []Entry
	for _, e := range r.shared.entries {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}

var (
	_ ports.Logger = (*NoopLogger)(nil)
	_ ports.Logger = (*Recorder)(nil)
)
