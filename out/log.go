package out

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Setup configures the standard logger: full timestamps, output to `w` and the given level
// (one of trace, debug, info, warn, error, fatal or panic).
func Setup(level string, w io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logrus.SetOutput(w)
	logrus.SetLevel(lvl)
	return nil
}

// Component returns the standard logger tagged with the name of the component logging.
func Component(name string) logrus.FieldLogger {
	return logrus.WithField("component", name)
}

// ApmLogger sends the Go agent logs to logrus.
type ApmLogger struct {
	logrus.FieldLogger
}

func (l *ApmLogger) Debugf(format string, args ...interface{}) {
	l.FieldLogger.Debugf(format, args...)
}

func (l *ApmLogger) Warningf(format string, args ...interface{}) {
	l.FieldLogger.Warnf(format, args...)
}

func (l *ApmLogger) Errorf(format string, args ...interface{}) {
	l.FieldLogger.Errorf(format, args...)
}

func NewApmLogger(logger logrus.FieldLogger) *ApmLogger {
	return &ApmLogger{
		FieldLogger: logger.WithField("component", "apm"),
	}
}
