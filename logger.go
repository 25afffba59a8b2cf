package swrcache

// Fields carries structured context for one log record.
type Fields map[string]any

// Logger is the leveled logger the client writes to. Adapters for logrus,
// zap and slog live under log/. A nil Options.Logger disables logging.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

// nsLogger stamps every record with the client namespace, so several clients
// can share one sink.
type nsLogger struct {
	l  Logger
	ns string
}

func withNamespace(l Logger, ns string) Logger {
	if _, nop := l.(NopLogger); nop {
		return l
	}
	return nsLogger{l: l, ns: ns}
}

func (n nsLogger) fields(f Fields) Fields {
	out := make(Fields, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out["ns"] = n.ns
	return out
}

func (n nsLogger) Debug(msg string, f Fields) { n.l.Debug(msg, n.fields(f)) }
func (n nsLogger) Info(msg string, f Fields)  { n.l.Info(msg, n.fields(f)) }
func (n nsLogger) Warn(msg string, f Fields)  { n.l.Warn(msg, n.fields(f)) }
func (n nsLogger) Error(msg string, f Fields) { n.l.Error(msg, n.fields(f)) }
