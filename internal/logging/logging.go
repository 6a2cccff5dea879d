// Package logging holds the logrus defaults shared by the library packages.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Nop returns an entry that writes nothing. Library packages use it until a
// caller supplies a logger, so importing them never prints to stderr.
func Nop() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// OrNop returns logger, or Nop when logger is nil.
func OrNop(logger *logrus.Entry) *logrus.Entry {
	if logger == nil {
		return Nop()
	}
	return logger
}
