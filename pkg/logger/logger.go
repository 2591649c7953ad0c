/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Configure sets the level and the format ("text" or "json") of the process
// logger. Unknown levels fall back to info.
func Configure(level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects the process logger.
func SetOutput(out io.Writer) {
	log.SetOutput(out)
}

// Logger returns the process logger.
func Logger() *logrus.Logger {
	return log
}

// WithComponent returns a logger tagging every entry with the component name.
func WithComponent(name string) logrus.FieldLogger {
	return log.WithField("component", name)
}

// Discard returns a logger that drops everything, used by tests.
func Discard() logrus.FieldLogger {
	return newLogger(io.Discard)
}

// Println logs a line at info level.
func Println(a ...any) {
	log.Println(a...)
}

// Printf is the formatted variant of Println.
func Printf(format string, a ...any) {
	log.Printf(format, a...)
}
