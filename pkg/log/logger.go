package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	root   = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	output io.Writer
)

// SetLevel sets the minimum level emitted by all loggers from this package.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	root = root.Level(toZerologLevel(level))
}

// SetOutput redirects log output, e.g. to a buffer in tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	root = root.Output(w)
}

// GetLogger returns the default logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zeroLogger{l: root}
}

// GetLoggerWithName returns a logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zeroLogger{l: root.With().Str(ComponentKey, name).Logger()}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// zeroLogger adapts a zerolog.Logger to the Logger interface.
type zeroLogger struct {
	l zerolog.Logger
}

func (z *zeroLogger) Debug(msg string, fields ...any) { emit(z.l.Debug(), msg, fields) }
func (z *zeroLogger) Info(msg string, fields ...any)  { emit(z.l.Info(), msg, fields) }
func (z *zeroLogger) Warn(msg string, fields ...any)  { emit(z.l.Warn(), msg, fields) }
func (z *zeroLogger) Error(msg string, fields ...any) { emit(z.l.Error(), msg, fields) }

func (z *zeroLogger) With(fields ...any) Logger {
	ctx := z.l.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zeroLogger{l: ctx.Logger()}
}

func emit(e *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			e = e.Object(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
