// Package logging hands out prefixed loggers for each collision subsystem.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.Mutex
	output  io.Writer = os.Stderr
	level             = log.InfoLevel
	loggers           = make(map[string]*log.Logger)
)

// For returns the shared logger for a subsystem, creating it on first use.
func For(subsystem string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[subsystem]; ok {
		return l
	}

	l := log.NewWithOptions(output, log.Options{
		Prefix: subsystem,
		Level:  level,
	})
	loggers[subsystem] = l
	return l
}

// SetLevel parses a level name ("debug", "info", "warn", "error") and applies it
// to every logger handed out so far and to those created later.
func SetLevel(name string) error {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("failed to parse log level %q: %w", name, err)
	}

	mu.Lock()
	defer mu.Unlock()

	level = lvl
	for _, l := range loggers {
		l.SetLevel(lvl)
	}
	return nil
}

// SetOutput redirects all subsystem loggers. Tests use it to silence capacity warnings.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	for _, l := range loggers {
		l.SetOutput(w)
	}
}
