package logger

import (
	"log"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	backend *logrus.Entry
	active  bool
}

var FSLogger Logger

func InitializeLogger(active bool, logfilename string) {
	if active {

		file, err := os.OpenFile(logfilename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			log.Fatal(err)
		}

		backend := logrus.New()
		backend.SetOutput(file)
		backend.SetLevel(logrus.InfoLevel)
		backend.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
		FSLogger = Logger{backend: backend.WithField("component", "DiskTree"), active: active}
	} else {
		FSLogger = Logger{active: active}
	}

}

// New returns an active logger on top of an existing logrus logger.
func New(backend *logrus.Logger) Logger {
	return Logger{backend: backend.WithField("component", "DiskTree"), active: true}
}

func (logger Logger) Info(msg string) {
	if logger.active {
		logger.backend.Info(msg)
	}
}

func (logger Logger) Error(msg any) {
	if logger.active {
		logger.backend.Error(msg)
	}
}

func (logger Logger) Warning(msg string) {
	if logger.active {
		logger.backend.Warn(msg)
	}
}
