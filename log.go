package gotftp

import "github.com/sirupsen/logrus"

// defaultLogger is the package-level logrus entry used when a Server or
// Client is constructed without one of its own. SetLogger overrides it,
// mirroring the teacher's SetLogHandler knob but with structured fields
// instead of a single formatted line.
var defaultLogger = logrus.NewEntry(logrus.StandardLogger())

// SetLogger replaces the package-level default logger used by Servers and
// Clients constructed without an explicit one.
func SetLogger(l *logrus.Entry) {
	defaultLogger = l
}

func loggerOrDefault(l *logrus.Entry) *logrus.Entry {
	if l != nil {
		return l
	}
	return defaultLogger
}
