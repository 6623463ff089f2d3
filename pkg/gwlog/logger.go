// Package gwlog carries forward the teacher's ambient logging choice
// verbatim: a minimal four-method Logger interface backed by the standard
// library's log package, rather than introducing a structured-logging
// third-party dependency the teacher itself never reaches for (grounded on
// pkg/auth/manager.go's Logger/DefaultLogger).
package gwlog

import (
	"fmt"
	"log"
	"strings"
)

// Logger is the structured-ish logging interface used throughout the
// gateway. Fields are passed as alternating key/value pairs, matching
// call sites like logger.Info("refreshed token", "credential", id).
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	// With returns a Logger that prepends kv to every subsequent call's
	// fields, for request-scoped loggers.
	With(kv ...interface{}) Logger
}

// StdLogger implements Logger on top of the standard library's log
// package. It is the gateway's default and only Logger implementation.
type StdLogger struct {
	prefix string
	fields []interface{}
}

// NewStdLogger creates a StdLogger with the given prefix (e.g. "gateway").
func NewStdLogger(prefix string) *StdLogger {
	return &StdLogger{prefix: prefix}
}

func (l *StdLogger) With(kv ...interface{}) Logger {
	merged := make([]interface{}, 0, len(l.fields)+len(kv))
	merged = append(merged, l.fields...)
	merged = append(merged, kv...)
	return &StdLogger{prefix: l.prefix, fields: merged}
}

func (l *StdLogger) Debug(msg string, fields ...interface{}) { l.log("DEBUG", msg, fields) }
func (l *StdLogger) Info(msg string, fields ...interface{})  { l.log("INFO", msg, fields) }
func (l *StdLogger) Warn(msg string, fields ...interface{})  { l.log("WARN", msg, fields) }
func (l *StdLogger) Error(msg string, fields ...interface{}) { l.log("ERROR", msg, fields) }

func (l *StdLogger) log(level, msg string, fields []interface{}) {
	all := make([]interface{}, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	if l.prefix != "" {
		b.WriteString("[" + l.prefix + "] ")
	}
	b.WriteString(msg)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	log.Print(b.String())
}

// NopLogger discards everything; useful in tests.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (n NopLogger) With(...interface{}) Logger { return n }
