package shutdownguard

import (
	"fmt"
	"log/slog"
)

// Logger specifies the interface for all log operations.
type Logger interface {
	Printf(format string, v ...interface{})
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...interface{}) {}

var _ Logger = noopLogger{}

// SlogLogger adapts a structured logger to the Logger interface.
// Messages are emitted at info level with a "component" attribute.
//
// If l is nil, then NOOP logger implementation is returned.
func SlogLogger(l *slog.Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return slogLogger{l: l.With(slog.String("component", "shutdownguard"))}
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Printf(format string, v ...interface{}) {
	s.l.Info(fmt.Sprintf(format, v...))
}
