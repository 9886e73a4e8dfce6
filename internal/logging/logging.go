/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, nil)
}

// SetupWithWriter configures zerolog with an additional writer (e.g., for log buffer).
func SetupWithWriter(environment string, additionalWriter io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if environment == "development" {
		level = zerolog.DebugLevel
	}

	// Console writer for human-readable output
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout}

	var writer io.Writer = consoleWriter
	if additionalWriter != nil {
		// JSON writer for the buffer (machine-readable)
		jsonWriter := os.Stdout // zerolog will use this for JSON format
		// Multi-writer: console for display, JSON for buffer
		multiWriter := zerolog.MultiLevelWriter(consoleWriter, additionalWriter)
		writer = multiWriter
		_ = jsonWriter // not used directly, additionalWriter captures JSON
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}

// FileWriter is a process-wide log file handle that can be closed and
// reopened in place, for SIGHUP-driven log cycling under an external
// log rotator. The zero value is not usable; construct with NewFileWriter.
type FileWriter struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// NewFileWriter opens path for appending, creating it if necessary.
func NewFileWriter(path string) (*FileWriter, error) {
	f := &FileWriter{path: path}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileWriter) open() error {
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("logging: open %s: %w", f.path, err)
	}
	f.file = file
	return nil
}

// Write implements io.Writer.
func (f *FileWriter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Write(p)
}

// Reopen closes the current file handle and opens path again, picking
// up a rename-and-recreate done by an external log rotator.
func (f *FileWriter) Reopen() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.file.Close(); err != nil {
		return fmt.Errorf("logging: close %s: %w", f.path, err)
	}
	return f.open()
}

// Close closes the underlying file handle.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
