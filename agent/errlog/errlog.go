// Package errlog appends failure records to a plain-text log file next to the
// running executable. It is the durable side channel for request failures;
// operator logging stays on zap. Writing a record must never fail a request,
// so write errors are reported on the zap logger and swallowed.
package errlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// DefaultFileName is the log file created next to the agent executable.
const DefaultFileName = "app_error.log"

const timestampLayout = "2006-01-02 15:04:05"

// Logger appends failure records to a single file. Each record is written
// with its own open/append/close; no handle is held between calls, so
// concurrent writers interleave only at the OS append level.
type Logger struct {
	Log  *zap.SugaredLogger
	path string
}

// New returns a Logger writing to path. An empty path resolves to
// DefaultFileName in the executable's directory, or the current directory if
// the executable path cannot be determined.
func New(log *zap.SugaredLogger, path string) *Logger {
	if path == "" {
		path = DefaultPath()
	}
	return &Logger{Log: log, path: path}
}

// DefaultPath resolves the default record file location once; callers may
// cache the result for the life of the process.
func DefaultPath() string {
	dir := "."
	if exe, err := os.Executable(); err == nil {
		dir = filepath.Dir(exe)
	}
	return filepath.Join(dir, DefaultFileName)
}

// Path returns the file the logger appends to.
func (l *Logger) Path() string {
	return l.path
}

// Record appends a plain failure record. Command is included when non-empty.
func (l *Logger) Record(endpoint, message, command string) {
	l.append(l.line(endpoint, message, command))
}

// RecordDetail appends a failure record followed by a second line carrying a
// lower-level diagnostic, e.g. the text of an OS spawn error.
func (l *Logger) RecordDetail(endpoint, message, detail, command string) {
	l.append(l.line(endpoint, message, command) + fmt.Sprintf("Detail: %s\n", detail))
}

func (l *Logger) line(endpoint, message, command string) string {
	ts := time.Now().Format(timestampLayout)
	if command != "" {
		return fmt.Sprintf("%s - ERROR - %s - %s - Command: %s\n", ts, endpoint, message, command)
	}
	return fmt.Sprintf("%s - ERROR - %s - %s\n", ts, endpoint, message)
}

func (l *Logger) append(entry string) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.Log.Errorf("failed to open error log %s: %s", l.path, err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(entry); err != nil {
		l.Log.Errorf("failed to write error log %s: %s", l.path, err)
	}
}
