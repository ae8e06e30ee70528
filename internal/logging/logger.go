// Package logging provides colored, leveled console output and the
// append-only JSONL event log for the jules-loop CLI.
//
// Console helpers write a prefixed, color-coded line. Debug output is
// suppressed unless verbose mode is enabled via SetVerbose(true).
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	mu      sync.Mutex
	verbose bool
	stdout  io.Writer = os.Stdout
	stderr  io.Writer = os.Stderr
)

var (
	infoPrefix    = color.New(color.FgBlue).SprintFunc()
	successPrefix = color.New(color.FgGreen).SprintFunc()
	warnPrefix    = color.New(color.FgYellow).SprintFunc()
	errorPrefix   = color.New(color.FgRed).SprintFunc()
	phasePrefix   = color.New(color.FgCyan).SprintFunc()
	debugPrefix   = color.New(color.FgBlue).SprintFunc()
)

// SetVerbose enables or disables Debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// SetOutput redirects console output. Nil writers restore the defaults.
func SetOutput(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	stdout = out
	stderr = errOut
}

func writeLine(w func() io.Writer, line string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(w(), line)
}

func out() io.Writer    { return stdout }
func errOut() io.Writer { return stderr }

// Info prints an informational message to stdout in blue.
func Info(msg string) {
	writeLine(out, infoPrefix("[INFO]")+" "+msg)
}

// Success prints a success message to stdout in green.
func Success(msg string) {
	writeLine(out, successPrefix("[SUCCESS]")+" "+msg)
}

// Warn prints a warning message to stdout in yellow.
func Warn(msg string) {
	writeLine(out, warnPrefix("[WARN]")+" "+msg)
}

// Error prints an error message to stderr in red.
func Error(msg string) {
	writeLine(errOut, errorPrefix("[ERROR]")+" "+msg)
}

// Phase prints a phase header to stdout in cyan, surrounded by separator lines.
func Phase(msg string) {
	sep := phasePrefix("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	writeLine(out, sep)
	writeLine(out, phasePrefix("[PHASE]")+" "+msg)
	writeLine(out, sep)
}

// Debug prints a debug message to stdout, only when verbose mode is enabled.
func Debug(msg string) {
	mu.Lock()
	v := verbose
	mu.Unlock()
	if !v {
		return
	}
	writeLine(out, debugPrefix("[DEBUG]")+" "+msg)
}

// FormatDuration converts a duration in seconds to a human-readable string.
//
// Examples:
//
//	FormatDuration(0)    => "0s"
//	FormatDuration(45)   => "45s"
//	FormatDuration(90)   => "1m 30s"
//	FormatDuration(3661) => "1h 1m 1s"
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%dh %dm %ds", seconds/3600, (seconds%3600)/60, seconds%60)
}
