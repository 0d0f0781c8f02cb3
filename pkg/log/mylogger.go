// SPDX-License-Identifier: GPL-3.0-only
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Log level constants
const (
	LevelTrace = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// currentLevel holds the configured log level. Session, process and stream
// goroutines log concurrently, so it is read atomically.
var currentLevel atomic.Int32

func init() {
	currentLevel.Store(LevelInfo)
}

type MyLoggerOptions struct {
	// if we output to stderr; the terminal UI owns stdout
	Stdout bool
	// Path of the file , if present log to it
	Path string
	// What level to log
	Level string
}

// ConfigureMyLogger routes the standard logger to the configured outputs.
// It returns an error instead of panicking when the log file cannot be opened.
func ConfigureMyLogger(options *MyLoggerOptions) error {
	var writer io.Writer

	if options.Path != "" {
		logfile, err := os.OpenFile(options.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", options.Path, err)
		}
		if options.Stdout {
			writer = io.MultiWriter(logfile, os.Stderr)
		} else {
			writer = logfile
		}
	} else if options.Stdout {
		writer = os.Stderr
	} else {
		writer = io.Discard
	}

	log.SetOutput(writer)
	currentLevel.Store(int32(ParseLevel(options.Level)))
	return nil
}

// ParseLevel maps a level name to its constant, defaulting to LevelInfo.
func ParseLevel(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Enabled reports whether messages at level are written.
func Enabled(level int) bool {
	return int(currentLevel.Load()) <= level
}

func logf(level int, prefix, format string, v ...interface{}) {
	if Enabled(level) {
		log.Printf(prefix+format, v...)
	}
}

// Trace logs a message at TRACE level
func Trace(format string, v ...interface{}) { logf(LevelTrace, "[TRACE] ", format, v...) }

// Debug logs a message at DEBUG level
func Debug(format string, v ...interface{}) { logf(LevelDebug, "[DEBUG] ", format, v...) }

// Info logs a message at INFO level
func Info(format string, v ...interface{}) { logf(LevelInfo, "[INFO] ", format, v...) }

// Warn logs a message at WARN level
func Warn(format string, v ...interface{}) { logf(LevelWarn, "[WARN] ", format, v...) }

// Error logs a message at ERROR level
func Error(format string, v ...interface{}) { logf(LevelError, "[ERROR] ", format, v...) }
