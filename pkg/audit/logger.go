package audit

import "context"

// Logger records audit events. Implementations must be safe for
// concurrent use; recording failures are logged, never surfaced to the
// request path.
type Logger interface {
	Record(ctx context.Context, event Event)
	Close() error
}

// NopLogger discards all events. Used when auditing is disabled.
type NopLogger struct{}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() *NopLogger { return &NopLogger{} }

// Record implements Logger
func (l *NopLogger) Record(ctx context.Context, event Event) {}

// Close implements Logger
func (l *NopLogger) Close() error { return nil }

// MultiLogger fans events out to several loggers.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that records to all given loggers
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Record implements Logger
func (m *MultiLogger) Record(ctx context.Context, event Event) {
	for _, l := range m.loggers {
		l.Record(ctx, event)
	}
}

// Close implements Logger, closing all underlying loggers
func (m *MultiLogger) Close() error {
	var firstErr error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
