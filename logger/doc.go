/*
Package logger provides logging functionality to convexauth by defining the required behavior in [Logger]
and providing an implementation of it with [StdLogger].

# Overview

The Logger interface outputs messages at certain levels of importance.
LogLevel is the type to use to represent those levels.
[StdLogger] accepts a [LogLevel] and only emits messages at or above that level of importance.
For example, if initialized with [LogLevelWarn],
only [*StdLogger.Warn], [*StdLogger.Error], and [*StdLogger.Fatal] produce messages.

Log messages emitted by [StdLogger] are composed of a few parts:
	- timestamp
	- log level
	- call site
	- message
	- log context

Here's an example:
	2025/04/28 15:55:21 [DEBUG] token/fetcher.go:71 'retrying token request in 212ms' log_context: {"error":"fetch failed"}

The log context is a JSON-encoded [*LogContext].
It carries data inessential to the message proper
that gives a fuller picture of the application state at the time of logging.

# SentryLogger

When constructed with [WithSentryDSN], [New] returns a [SentryLogger]
that additionally ships the [LogContext.Error] of warnings and errors to Sentry.

# SkipLogger

Sometimes the file and line number in a log needs to be configurable.
[SkipLogger] sets the number of frames to skip back in order to reach the desired caller.
*/
package logger
