// Package logging is the launcher's running text log. Every phase transition
// and outcome of an update goes through here so the same lines reach stdout
// and, optionally, a log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	verbose atomic.Bool

	mu         sync.Mutex
	console    io.Writer = os.Stdout
	output     io.Writer = os.Stdout
	outputFile *os.File
	outputPath string
	decorate   func(level Level, line string) string
)

// Level tags a line for decoration. Only the console copy is decorated; the
// log file always receives plain text.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

// SetVerbose enables or disables debug logging for the current process.
func SetVerbose(enabled bool) {
	verbose.Store(enabled)
}

// Verbose reports whether debug logging is enabled.
func Verbose() bool {
	return verbose.Load()
}

// SetConsole replaces the console writer. Tests use it to capture output.
// It returns a func restoring the previous writer.
func SetConsole(w io.Writer) func() {
	mu.Lock()
	defer mu.Unlock()

	prev := console
	console = w
	rebuildOutput()
	return func() {
		mu.Lock()
		defer mu.Unlock()
		console = prev
		rebuildOutput()
	}
}

// Console returns the writer console lines currently go to.
func Console() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return console
}

// SetDecorator installs a function used to style leveled console lines.
// Passing nil disables decoration.
func SetDecorator(fn func(level Level, line string) string) {
	mu.Lock()
	defer mu.Unlock()
	decorate = fn
}

// SetOutputFile configures optional file logging while preserving console output.
// Passing an empty path disables file logging.
func SetOutputFile(path string) error {
	path = strings.TrimSpace(path)

	mu.Lock()
	defer mu.Unlock()

	if path == outputPath {
		return nil
	}

	if outputFile != nil {
		err := outputFile.Close()
		outputFile = nil
		outputPath = ""
		rebuildOutput()
		if err != nil {
			return err
		}
	}

	if path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	outputFile = f
	outputPath = path
	rebuildOutput()
	return nil
}

// Close flushes and closes the log file if one is configured.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if outputFile == nil {
		return nil
	}
	err := outputFile.Close()
	outputFile = nil
	outputPath = ""
	rebuildOutput()
	return err
}

// caller holds mu.
func rebuildOutput() {
	if outputFile == nil {
		output = console
		return
	}
	output = io.MultiWriter(console, outputFile)
}

// Infof prints formatted output regardless of verbosity level.
func Infof(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, format, args...)
}

// Infoln prints output regardless of verbosity level.
func Infoln(args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(output, args...)
}

// Successf prints a line marking a completed step.
func Successf(format string, args ...any) {
	leveled(LevelSuccess, fmt.Sprintf(format, args...))
}

// Warnf prints a line the user should notice but that does not stop the run.
func Warnf(format string, args ...any) {
	leveled(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf prints a failure line.
func Errorf(format string, args ...any) {
	leveled(LevelError, fmt.Sprintf(format, args...))
}

// Debugf prints formatted output only when verbose mode is enabled.
func Debugf(format string, args ...any) {
	if !Verbose() {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, format, args...)
}

func leveled(level Level, line string) {
	line = strings.TrimRight(line, "\n")

	mu.Lock()
	defer mu.Unlock()

	styled := line
	if decorate != nil {
		styled = decorate(level, line)
	}
	fmt.Fprintln(console, styled)
	if outputFile != nil {
		fmt.Fprintln(outputFile, line)
	}
}
