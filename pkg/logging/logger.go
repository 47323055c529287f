// Package logging is a small structured JSON logger. Every entry is one
// line: timestamp, level, message and an optional field map. Loggers are
// safe for concurrent use and children created with With share the
// parent's writer.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// Level orders log severities. The zero value is DebugLevel so an unset
// level never hides output.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a level name to its Level, case-insensitively.
// Unrecognized names fall back to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is one key-value pair attached to an entry.
type Field struct {
	Key   string
	Value any
}

// Logger is the interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With creates a child logger with the given fields pre-set.
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// LogEntry is the wire shape of one line.
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// JSONLogger writes entries as JSON lines.
type JSONLogger struct {
	out    io.Writer
	level  Level
	preset []Field
	mu     sync.Mutex
}

// NewJSONLogger writes entries at or above level to out.
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	return &JSONLogger{out: writer, level: level}
}

// NewDefaultLogger writes to stdout at INFO.
func NewDefaultLogger() *JSONLogger {
	return NewJSONLogger(os.Stdout, InfoLevel)
}

func (l *JSONLogger) emit(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if len(l.preset)+len(fields) > 0 {
		merged := make(map[string]any, len(l.preset)+len(fields))
		for _, f := range l.preset {
			merged[f.Key] = f.Value
		}
		// Call-site fields override preset ones on key collision.
		for _, f := range fields {
			merged[f.Key] = f.Value
		}
		entry.Fields = merged
	}

	line, err := json.Marshal(entry)
	if err != nil {
		l.mu.Lock()
		fmt.Fprintf(l.out, "[ERROR] Failed to marshal log entry: %v\n", err)
		l.mu.Unlock()
		return
	}

	l.mu.Lock()
	l.out.Write(append(line, '\n'))
	l.mu.Unlock()
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.emit(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.emit(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.emit(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.emit(ErrorLevel, msg, fields) }

// With returns a child carrying the parent's preset fields plus the
// given ones. The child shares the writer but not the level: raising the
// parent's level later leaves existing children untouched.
func (l *JSONLogger) With(fields ...Field) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	return &JSONLogger{
		out:    l.out,
		level:  l.level,
		preset: slices.Concat(l.preset, fields),
	}
}

// SetLevel raises or lowers the threshold for future entries.
func (l *JSONLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current threshold.
func (l *JSONLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// NopLogger discards everything. Solve options default to it so library
// callers opt into logging instead of out.
type NopLogger struct{}

func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (n NopLogger) With(fields ...Field) Logger     { return n }
func (NopLogger) SetLevel(level Level)              {}
func (NopLogger) GetLevel() Level                   { return InfoLevel }

// NewNopLogger returns a logger that drops every entry.
func NewNopLogger() Logger {
	return NopLogger{}
}

var (
	defaultLogger Logger
	once          sync.Once
)

// DefaultLogger returns the process-wide logger, created on first use
// at the level LOG_LEVEL names (INFO when unset).
func DefaultLogger() Logger {
	once.Do(func() {
		defaultLogger = NewJSONLogger(os.Stdout, ParseLevel(os.Getenv("LOG_LEVEL")))
	})
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger. Binaries call this
// once at startup after loading config.
func SetDefaultLogger(logger Logger) {
	defaultLogger = logger
}

// Package-level helpers forwarding to the default logger.

func Debug(msg string, fields ...Field) {
	DefaultLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	DefaultLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	DefaultLogger().Warn(msg, fields...)
}

// ErrorLog avoids colliding with the Error field constructor.
func ErrorLog(msg string, fields ...Field) {
	DefaultLogger().Error(msg, fields...)
}

func With(fields ...Field) Logger {
	return DefaultLogger().With(fields...)
}
