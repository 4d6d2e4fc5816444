// Package logger provides the process-wide logger. Output goes to stderr so
// the runner's stdout stays reserved for machine-readable results; Init adds
// a log file on top.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log = logrus.New()

	mu      sync.Mutex
	logFile *os.File
	output  io.Writer = os.Stderr
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	log.SetLevel(logrus.InfoLevel)
}

// Init additionally routes log output to the specified file.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	output = io.MultiWriter(os.Stderr, f)
	log.SetOutput(output)
	return nil
}

// SetDebug enables or disables debug-level output.
func SetDebug(enabled bool) {
	if enabled {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// Close closes the log file and falls back to stderr-only output.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	output = os.Stderr
	log.SetOutput(output)
}

// Info logs an info message.
func Info(format string, v ...any) {
	log.Infof(format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...any) {
	log.Debugf(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...any) {
	log.Warnf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...any) {
	log.Errorf(format, v...)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}

// GetWriter returns the current log destination for components that stream
// raw output, such as child process pipes.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}
