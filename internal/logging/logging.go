// Package logging is a small logfmt logger for stderr diagnostics. Each
// line is assembled in a buffer and written with a single call, so lines
// from concurrent goroutines never interleave.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error

	// nopLevel sits above Error so a nop logger drops everything.
	nopLevel
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a config string onto a Level; unknown strings mean Info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

type Field struct {
	Key   string
	Value any
}

func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Enabled(level Level) bool
}

type logfmtLogger struct {
	mu    *sync.Mutex
	out   io.Writer
	min   Level
	bound []Field
}

func New(out io.Writer, min Level) Logger {
	if out == nil {
		out = os.Stderr
	}
	return &logfmtLogger{mu: &sync.Mutex{}, out: out, min: min}
}

func Nop() Logger {
	return &logfmtLogger{mu: &sync.Mutex{}, out: io.Discard, min: nopLevel}
}

func (l *logfmtLogger) Enabled(level Level) bool {
	return l != nil && level >= l.min
}

func (l *logfmtLogger) With(fields ...Field) Logger {
	if l == nil {
		return Nop()
	}
	bound := make([]Field, 0, len(l.bound)+len(fields))
	bound = append(bound, l.bound...)
	bound = append(bound, fields...)
	return &logfmtLogger{mu: l.mu, out: l.out, min: l.min, bound: bound}
}

func (l *logfmtLogger) Debug(msg string, fields ...Field) { l.emit(Debug, msg, fields) }
func (l *logfmtLogger) Info(msg string, fields ...Field)  { l.emit(Info, msg, fields) }
func (l *logfmtLogger) Warn(msg string, fields ...Field)  { l.emit(Warn, msg, fields) }
func (l *logfmtLogger) Error(msg string, fields ...Field) { l.emit(Error, msg, fields) }

func (l *logfmtLogger) emit(level Level, msg string, fields []Field) {
	if !l.Enabled(level) {
		return
	}
	var buf bytes.Buffer
	buf.WriteString("ts=")
	buf.WriteString(time.Now().UTC().Format(time.RFC3339Nano))
	buf.WriteString(" level=")
	buf.WriteString(level.String())
	buf.WriteString(" msg=")
	appendValue(&buf, msg)
	for _, field := range l.bound {
		writeField(&buf, field)
	}
	for _, field := range fields {
		writeField(&buf, field)
	}
	buf.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(buf.Bytes())
}

func writeField(buf *bytes.Buffer, field Field) {
	buf.WriteByte(' ')
	buf.WriteString(field.Key)
	buf.WriteByte('=')
	appendValue(buf, field.Value)
}

func appendValue(buf *bytes.Buffer, value any) {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		appendString(buf, v)
	case []byte:
		appendString(buf, string(v))
	case error:
		appendString(buf, v.Error())
	case fmt.Stringer:
		appendString(buf, v.String())
	case time.Duration:
		appendString(buf, v.String())
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case int:
		buf.WriteString(strconv.Itoa(v))
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	default:
		appendString(buf, fmt.Sprintf("%v", v))
	}
}

// appendString quotes only when logfmt parsing would otherwise break.
func appendString(buf *bytes.Buffer, value string) {
	if value == "" {
		buf.WriteString(`""`)
		return
	}
	if strings.ContainsAny(value, " \t\n\r\"=") {
		buf.WriteString(strconv.Quote(value))
		return
	}
	buf.WriteString(value)
}
