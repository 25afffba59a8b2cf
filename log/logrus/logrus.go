package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/swrcache"
)

// LogrusLogger adapts a logrus entry to swrcache.Logger. An "err" field that
// holds an error is attached with WithError so hooks and formatters see it.
type LogrusLogger struct{ E *logrus.Entry }

var _ swrcache.Logger = LogrusLogger{}

// New wraps l, tagging every record with component=swrcache.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "swrcache")}
}

func (l LogrusLogger) Debug(msg string, f swrcache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f swrcache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f swrcache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f swrcache.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f swrcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	fields := make(logrus.Fields, len(f))
	var err error
	for k, v := range f {
		if e, ok := v.(error); ok && k == "err" {
			err = e
			continue
		}
		fields[k] = v
	}
	e := l.E.WithFields(fields)
	if err != nil {
		e = e.WithError(err)
	}
	return e
}
