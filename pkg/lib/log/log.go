// Package log exposes the logger accepted by the planner client.
//
// The client logs at debug level the requests it makes and the stream events
// it receives. Leave [lib.Config.Logger] empty to get [Noop].
//
// Adapting a slog logger only needs the format methods to do something:
//
//	type slogger struct{ l *slog.Logger }
//
//	func (s slogger) Debugf(format string, args ...any) { s.l.Debug(fmt.Sprintf(format, args...)) }
//	func (s slogger) WithValues(kv log.Kv) log.Logger   { return s }
//	// Infof, Warningf, Errorf, WithCtxValues and SetValuesOnCtx the same way.
package log

import "github.com/hte-labs/hte-planner/internal/log"

// Logger is the logger used by the planner client.
type Logger = log.Logger

// Kv are the structured fields added with [Logger.WithValues].
type Kv = log.Kv

// Noop discards everything.
var Noop = log.Noop
