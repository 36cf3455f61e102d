// Package log provides structured logging for SIMTree fitting operations.
//
// It defines a minimal logging interface backed by zerolog. Estimators obtain
// a named logger via GetLoggerWithName and attach machine-learning context
// (model name, operation, data shape, iteration counters, validation loss)
// through the standard attribute keys in attributes.go.
package log

// Logger is a minimal structured logging interface. Fields are alternating
// key/value pairs, with keys as strings.
type Logger interface {
	// Debug logs detailed diagnostic information, e.g. per-iteration
	// training history.
	Debug(msg string, fields ...any)

	// Info logs general operational information about fitting progress.
	Info(msg string, fields ...any)

	// Warn logs potentially problematic conditions that do not stop a fit.
	Warn(msg string, fields ...any)

	// Error logs error conditions. If a field value is an error, its message
	// is attached under the "error" key.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated on every
	// subsequent message.
	With(fields ...any) Logger
}

// Level represents a logging severity level.
type Level int

// Standard logging levels.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
