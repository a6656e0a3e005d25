// Package logging provides a thin job-scoped wrapper around the
// standard library's log.Logger. The donor pack never reaches for a
// structured logging library in a complete repo, so neither do we.
package logging

import (
	"log"
	"os"
)

// Logger prefixes every line with a job ID, when one is set.
type Logger struct {
	*log.Logger
}

// New returns a Logger writing to stderr with no job prefix.
func New() *Logger {
	return &Logger{log.New(os.Stderr, "", log.LstdFlags)}
}

// ForJob returns a Logger scoped to a single job ID.
func (l *Logger) ForJob(jobID string) *Logger {
	return &Logger{log.New(os.Stderr, "[job "+jobID+"] ", log.LstdFlags)}
}
