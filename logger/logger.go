package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"regexp"
	"runtime"
	"strings"

	"github.com/fatih/color"

	"github.com/fartinmartin/convexauth"
)

const knownFrames = 2

var modulePathRegex = regexp.MustCompile("convexauth.*$")

// The Logger interface defines the levels a logging can occur at.
type Logger interface {
	Debug(msg string, ctx *LogContext)
	Error(msg string, ctx *LogContext)
	Fatal(msg string, ctx *LogContext)
	Info(msg string, ctx *LogContext)
	Warn(msg string, ctx *LogContext)

	LogLevel() LogLevel
}

// The SkipLogger interface defines a Logger that scrolls back
// the number of frames provided in order to ascertain the call site.
type SkipLogger interface {
	AddSkip(i int) SkipLogger
	Skip() int
	Logger
}

type LogLevel int

const (
	LogLevelUnk LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// NewLogLevel parses val, ignoring case, into a LogLevel.
// Unrecognized values yield LogLevelUnk.
func NewLogLevel(val string) LogLevel {
	switch strings.ToUpper(val) {
	case "DEBUG":
		return LogLevelDebug
	case "INFO":
		return LogLevelInfo
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	case "FATAL":
		return LogLevelFatal
	default:
		return LogLevelUnk
	}
}

func (ll LogLevel) String() string {
	return map[LogLevel]string{
		LogLevelDebug: "[DEBUG]",
		LogLevelInfo:  "[INFO]",
		LogLevelWarn:  "[WARN]",
		LogLevelError: "[ERROR]",
		LogLevelFatal: "[FATAL]",
		LogLevelUnk:   "[UNK]",
	}[ll]
}

// StdLogger implements Logger using log.
type StdLogger struct {
	skip   int
	env    string
	l      *log.Logger
	ll     LogLevel
	dsn    string
	noExit bool
}

// New constructs a Logger.
//
// Logs are printed to os.Stdout by default, using the std lib log pkg.
// The default environment is DEVELOPMENT.
// The default log level is INFO.
//
// If a Sentry DSN is provided with WithSentryDSN, a SentryLogger wraps the StdLogger.
func New(opts ...LoggerOptFn) Logger {
	l := &StdLogger{
		env: "DEVELOPMENT",
		l:   log.New(os.Stdout, "", log.LstdFlags),
		ll:  LogLevelInfo,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.dsn != "" {
		l.Debug("Sentry DSN set, configuring SentryLogger", nil)
		return NewSentryLogger(l, l.dsn)
	}

	return l
}

// NewDiscard constructs a Logger writing nowhere,
// useful when a caller does not care to log.
func NewDiscard() Logger {
	return New(WithLogger(log.New(io.Discard, "", 0)), WithLevel(LogLevelFatal), WithoutExit())
}

// AddSkip replaces the current number of frames to scroll back
// when logging a message.
//
// Use Skip to get the current skip amount
// when needing to add to it with AddSkip.
func (l *StdLogger) AddSkip(i int) SkipLogger {
	newl := *l
	newl.skip = i
	return &newl
}

// Debug writes a debug log.
func (l *StdLogger) Debug(msg string, ctx *LogContext) {
	if l.ll > LogLevelDebug {
		return
	}

	l.log(color.WhiteString, LogLevelDebug, msg, ctx)
}

// Error writes an error log.
func (l *StdLogger) Error(msg string, ctx *LogContext) {
	if l.ll > LogLevelError {
		return
	}

	l.log(color.RedString, LogLevelError, msg, ctx)
}

// Fatal writes a fatal log and exits the process,
// unless configured WithoutExit.
func (l *StdLogger) Fatal(msg string, ctx *LogContext) {
	if l.ll <= LogLevelFatal {
		l.log(color.MagentaString, LogLevelFatal, msg, ctx)
	}

	if !l.noExit {
		os.Exit(1)
	}
}

// Info writes an info log.
func (l *StdLogger) Info(msg string, ctx *LogContext) {
	if l.ll > LogLevelInfo {
		return
	}

	l.log(color.BlueString, LogLevelInfo, msg, ctx)
}

// Warn writes a warning log.
func (l *StdLogger) Warn(msg string, ctx *LogContext) {
	if l.ll > LogLevelWarn {
		return
	}

	l.log(color.YellowString, LogLevelWarn, msg, ctx)
}

// LogLevel returns the LogLevel set for the StdLogger.
func (l *StdLogger) LogLevel() LogLevel { return l.ll }

// Skip returns the current amount of frames to scroll back
// when logging a message.
func (l *StdLogger) Skip() int { return l.skip }

// log executes printing the log message,
// including any context if available.
func (l *StdLogger) log(colorizer func(string, ...any) string, level LogLevel, msg string, ctx *LogContext) {
	// NOTE: skip the number of frames the StdLogger has
	// and however many the StdLogger is configured with
	_, file, line, _ := runtime.Caller(knownFrames + l.skip)
	if ctx != nil && ctx.Caller != "" {
		file, line = ctx.Caller, 0
	}

	toPrint := immediateFilepath(file)
	if line > 0 {
		msg = colorizer("%s %s:%d '%s'", level, toPrint, line, msg)
	} else {
		msg = colorizer("%s %s '%s'", level, toPrint, msg)
	}

	if ctx == nil {
		l.l.Println(msg)
		return
	}

	l.l.Println(msg, "log_context:", ctx)
}

// immediateFilepath trims file down to the path within this module,
// or, outside of it, to the file and the directory it is in
// e.g.,:
// /home/dev/my-project/main.go => my-project/main.go
// /home/dev/my-project/internal/internal.go => internal/internal.go
func immediateFilepath(file string) string {
	if match := modulePathRegex.FindString(file); match != "" {
		if i := strings.Index(match, "/"); i >= 0 {
			return match[i+1:]
		}

		return match
	}

	fullPath, file := path.Split(file)
	return path.Base(fullPath) + "/" + file
}

// UnmarshalText parses text with NewLogLevel, rejecting unrecognized levels.
//
// UnmarshalText implements [encoding.TextUnmarshaler].
func (ll *LogLevel) UnmarshalText(text []byte) error {
	lvl := NewLogLevel(strings.TrimSpace(string(text)))
	if lvl == LogLevelUnk {
		return fmt.Errorf("%w: log level %q", convexauth.ErrNotValid, text)
	}

	*ll = lvl
	return nil
}
