package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Package-level logrus instance shared by the whole engine. JSON to stdout
// by default; Setup switches to a compact text format in development mode.
var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return l
}

func Setup(level, mode string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	if mode == "development" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	}
}

func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// WithService tags entries with the service a pipeline stage is acting on.
func WithService(serviceName string) *logrus.Entry {
	return log.WithField("service", serviceName)
}

// WithIncident tags entries emitted while an incident is being worked.
func WithIncident(incidentID string) *logrus.Entry {
	return log.WithField("incident_id", incidentID)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return log.WithField(key, value)
}

func WithFields(fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(fields)
}

func Debug(msg string) { log.Debug(msg) }
func Info(msg string)  { log.Info(msg) }
func Warn(msg string)  { log.Warn(msg) }
func Error(msg string) { log.Error(msg) }

func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { log.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { log.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { log.Fatalf(format, args...) }
