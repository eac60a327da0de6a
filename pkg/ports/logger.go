package ports

import "fmt"

// LogLevel is the minimum severity a Logger emits.
type LogLevel int

const (
	// LevelDebug covers per-packet and per-entry detail from the index and
	// decode components.
	LevelDebug LogLevel = iota
	// LevelInfo covers session progress such as opening a container.
	LevelInfo
	// LevelWarn covers recoverable problems: a stream without a decoder, an
	// audio packet the engine rejected, a forced index scan cut short.
	LevelWarn
	LevelError
	// LevelQuiet suppresses everything.
	LevelQuiet
)

var levelNames = [...]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelQuiet: "quiet",
}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLogLevel maps a level name to its LogLevel. The empty string means
// LevelInfo. Unknown names are a configuration error.
func ParseLogLevel(s string) (LogLevel, error) {
	if s == "" {
		return LevelInfo, nil
	}
	for l, name := range levelNames {
		if name == s {
			return LogLevel(l), nil
		}
	}
	return LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrConfiguration, s)
}

// Logger receives diagnostics from every component. Messages are English
// format strings; implementations may translate them before formatting.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that tags messages with component.
	WithComponent(component string) Logger
}
