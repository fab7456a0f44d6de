// Package logger provides the structured logger shared by every front end.
package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
)

// Logger writes one JSON object per line: a header with time, level and
// prefix, then "message" and the key/value pairs.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

const header = `{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`

type gommonLogger struct {
	l      *log.Logger
	fields log.JSON
}

// New returns a Logger writing to w at the given level ("debug", "info",
// "warn", "error" or "off").
func New(prefix string, w io.Writer, level string) (Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := log.New(prefix)
	l.SetOutput(w)
	l.SetHeader(header)
	l.SetLevel(lvl)
	return &gommonLogger{l: l}, nil
}

func ParseLevel(s string) (log.Lvl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG, nil
	case "", "info":
		return log.INFO, nil
	case "warn", "warning":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off":
		return log.OFF, nil
	}
	return 0, errors.Errorf("unknown log level %q", s)
}

func (g *gommonLogger) entry(msg string, kv []any) log.JSON {
	j := make(log.JSON, len(g.fields)+len(kv)/2+1)
	for k, v := range g.fields {
		j[k] = v
	}
	addPairs(j, kv)
	j["message"] = msg
	return j
}

func addPairs(j log.JSON, kv []any) {
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 == len(kv) {
			j["!BADKEY"] = key
			break
		}
		switch v := kv[i+1].(type) {
		case error:
			j[key] = v.Error()
		case fmt.Stringer:
			j[key] = v.String()
		default:
			j[key] = v
		}
	}
}

func (g *gommonLogger) Debug(msg string, kv ...any) { g.l.Debugj(g.entry(msg, kv)) }
func (g *gommonLogger) Info(msg string, kv ...any)  { g.l.Infoj(g.entry(msg, kv)) }
func (g *gommonLogger) Warn(msg string, kv ...any)  { g.l.Warnj(g.entry(msg, kv)) }
func (g *gommonLogger) Error(msg string, kv ...any) { g.l.Errorj(g.entry(msg, kv)) }

// With returns a logger that adds kv to every entry.
func (g *gommonLogger) With(kv ...any) Logger {
	fields := make(log.JSON, len(g.fields)+len(kv)/2)
	for k, v := range g.fields {
		fields[k] = v
	}
	addPairs(fields, kv)
	return &gommonLogger{l: g.l, fields: fields}
}

type nop struct{}

// Nop discards everything.
func Nop() Logger { return nop{} }

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}
func (nop) With(...any) Logger   { return nop{} }
