package log

// Logger receives the traffic events a serial channel emits: commands,
// answers, state changes, and failures. Implementations must tolerate
// concurrent calls and return quickly; the channel logs from inside the
// transaction, so a slow logger stretches every command round trip.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops every event. The zero value is ready to use; the serial
// and hub packages fall back to it when no logger is configured.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

// MultiLogger fans each event out to several loggers in order, typically a
// FileLogger for the session record plus a SlogAdapter for watching the
// wire live.
type MultiLogger []Logger

// NewMultiLogger builds a MultiLogger from the given loggers, dropping nil
// entries.
func NewMultiLogger(loggers ...Logger) MultiLogger {
	m := make(MultiLogger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			m = append(m, l)
		}
	}
	return m
}

// Log passes the event to every logger in the chain.
func (m MultiLogger) Log(event Event) {
	for _, l := range m {
		l.Log(event)
	}
}

var (
	_ Logger = NoopLogger{}
	_ Logger = MultiLogger(nil)
)
