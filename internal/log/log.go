package log

import (
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var debug bool

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("VOICEBOX_DEBUG"))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new text logger, at debug level when VOICEBOX_DEBUG is set.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// New returns a logger for the given level name. An empty level keeps GetLogger's default.
func New(level string, json bool) (*logrus.Logger, error) {
	l := GetLogger()
	if level != "" && !debug {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		l.SetLevel(lvl)
	}
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}

// Discard returns an entry that drops everything.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
