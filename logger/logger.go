// file: logger/logger.go

package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the shared application logger. Call Init before using it.
var Log *logrus.Logger

// Init configures the global logger instance.
func Init() {
	Log = logrus.New()
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.JSONFormatter{})
	Log.SetLevel(logrus.InfoLevel)
}
