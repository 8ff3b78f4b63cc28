// ABOUTME: Lazily-enabled debug logging with optional in-memory line buffer
// ABOUTME: Buffered lines surface in the CLI's debugLines JSON field

// Package runlog is a small debug-log helper, lazily enabled by the
// CLI's --debug flag. Until Setup is called, Debugf is a no-op.
package runlog

import (
	"fmt"
	"log"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	logger *log.Logger
	lines  []string
	buffer bool
)

// Setup opens filename for debug logging. Passing buffer=true also keeps
// an in-memory copy of every line, surfaced by Lines() for the CLI's
// debugLines[] JSON field.
func Setup(filename string, buffer_ bool) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create debug log file: %w", err)
	}

	mu.Lock()
	logger = log.New(f, "", log.Ltime|log.Lmicroseconds)
	buffer = buffer_
	lines = nil
	mu.Unlock()

	return nil
}

// Debugf logs a debug message if debug logging has been enabled via
// Setup. It is a safe no-op otherwise.
func Debugf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if logger == nil {
		return
	}

	msg := fmt.Sprintf(format, args...)
	logger.Print(msg)

	if buffer {
		lines = append(lines, msg)
	}
}

// Lines returns the buffered debug lines collected since Setup, if
// buffering was requested. Returns nil otherwise.
func Lines() []string {
	mu.Lock()
	defer mu.Unlock()

	return append([]string(nil), lines...)
}

// Reset clears logger state; used by tests to isolate runs.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	logger = nil
	lines = nil
	buffer = false
}
