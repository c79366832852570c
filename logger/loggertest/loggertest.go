// Package loggertest provides a logger.Logger recording what it is asked to log.
package loggertest

import (
	"sync"

	"github.com/fartinmartin/convexauth/logger"
)

var _ logger.Logger = (*Recorder)(nil)

// An Entry is one call to a Recorder.
type Entry struct {
	Level   logger.LogLevel
	Msg     string
	Context *logger.LogContext
}

// A Recorder is a logger.Logger keeping every Entry in memory.
// Fatal does not exit.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// New constructs a Recorder.
func New() *Recorder { return new(Recorder) }

func (r *Recorder) Debug(msg string, ctx *logger.LogContext) { r.add(logger.LogLevelDebug, msg, ctx) }
func (r *Recorder) Error(msg string, ctx *logger.LogContext) { r.add(logger.LogLevelError, msg, ctx) }
func (r *Recorder) Fatal(msg string, ctx *logger.LogContext) { r.add(logger.LogLevelFatal, msg, ctx) }
func (r *Recorder) Info(msg string, ctx *logger.LogContext)  { r.add(logger.LogLevelInfo, msg, ctx) }
func (r *Recorder) Warn(msg string, ctx *logger.LogContext)  { r.add(logger.LogLevelWarn, msg, ctx) }

// LogLevel is always logger.LogLevelDebug.
func (r *Recorder) LogLevel() logger.LogLevel { return logger.LogLevelDebug }

// Entries returns a copy of everything logged so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Entry(nil), r.entries...)
}

// At returns the entries logged at level.
func (r *Recorder) At(level logger.LogLevel) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}

	return out
}

func (r *Recorder) add(level logger.LogLevel, msg string, ctx *logger.LogContext) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Context: ctx})
	r.mu.Unlock()
}
