// ABOUTME: Structured logger setup shared by every command
// ABOUTME: Wraps charmbracelet/log with level parsing and a process-wide default
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu     sync.Mutex
	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "leadpipe"})
)

// New creates a logger writing to w at the given level name. Unknown level
// names fall back to info.
func New(level string, w io.Writer) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "leadpipe",
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
}

// Init installs a stderr logger at level as the process default.
func Init(level string) *log.Logger {
	l := New(level, os.Stderr)
	mu.Lock()
	logger = l
	mu.Unlock()
	log.SetDefault(l)
	return l
}

// Logger returns the process default logger.
func Logger() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}
