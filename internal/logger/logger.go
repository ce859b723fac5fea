// Package logger provides leveled logging for all phantom components.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
)

var (
	mu    sync.Mutex
	out   = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	debug atomic.Bool
)

// SetDebug enables or disables debug-level output.
func SetDebug(enabled bool) {
	debug.Store(enabled)
}

// DebugEnabled reports whether debug-level output is enabled.
func DebugEnabled() bool {
	return debug.Load()
}

// SetOutput redirects all log output to w, e.g. to the CLI's -log_file.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out.SetOutput(w)
}

func logf(level, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	out.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

// Debug logs a debug-level message. No-op unless SetDebug(true) was called.
func Debug(format string, args ...interface{}) {
	if !debug.Load() {
		return
	}
	logf("DEBUG", format, args...)
}

// Info logs an info-level message.
func Info(format string, args ...interface{}) {
	logf("INFO", format, args...)
}

// Warn logs a warning-level message.
func Warn(format string, args ...interface{}) {
	logf("WARN", format, args...)
}

// Error logs an error-level message.
func Error(format string, args ...interface{}) {
	logf("ERROR", format, args...)
}
