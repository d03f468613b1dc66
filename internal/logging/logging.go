// Package logging builds the leveled key/value loggers used by the CLI,
// the experiment builder and the run store.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits of file logs.
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 28
)

// New returns a logger writing to w at the named level (debug, info, warn
// or error).
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "fluxdrive",
	}), nil
}

// NewFile logs to stderr and to a rotating file at path. The returned
// closer releases the file.
func NewFile(path, level string) (*log.Logger, io.Closer, error) {
	roller := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
	}
	l, err := New(io.MultiWriter(os.Stderr, roller), level)
	if err != nil {
		return nil, nil, err
	}
	return l, roller, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
