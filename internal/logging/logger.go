// Package logging provides structured, correlation-aware logging for the
// orchestration service. Output is one JSON object per line by default.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"planforge/internal/correlation"
)

// Logger is the structured logging interface used by all components
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})

	// Context-aware variants attach the request correlation id
	DebugContext(ctx context.Context, msg string, fields ...interface{})
	InfoContext(ctx context.Context, msg string, fields ...interface{})
	WarnContext(ctx context.Context, msg string, fields ...interface{})
	ErrorContext(ctx context.Context, msg string, fields ...interface{})

	WithComponent(component string) Logger
}

// Level represents logging levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a level name to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

type entry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         string                 `json:"level"`
	Message       string                 `json:"message"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Component     string                 `json:"component,omitempty"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

// jsonLogger writes JSON lines to stdout
type jsonLogger struct {
	level     Level
	component string
	useJSON   bool
}

// NewLogger creates a logger at the given level. Set LOG_JSON=false for
// human-readable output.
func NewLogger(level Level) Logger {
	useJSON := true
	if v := os.Getenv("LOG_JSON"); v == "false" || v == "0" {
		useJSON = false
	}
	return &jsonLogger{level: level, useJSON: useJSON}
}

// WithComponent returns a logger that tags every record with a component name
func (l *jsonLogger) WithComponent(component string) Logger {
	return &jsonLogger{level: l.level, component: component, useJSON: l.useJSON}
}

func (l *jsonLogger) Debug(msg string, fields ...interface{}) { l.log(LevelDebug, "", msg, fields) }
func (l *jsonLogger) Info(msg string, fields ...interface{})  { l.log(LevelInfo, "", msg, fields) }
func (l *jsonLogger) Warn(msg string, fields ...interface{})  { l.log(LevelWarn, "", msg, fields) }
func (l *jsonLogger) Error(msg string, fields ...interface{}) { l.log(LevelError, "", msg, fields) }

func (l *jsonLogger) DebugContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(LevelDebug, correlation.FromContext(ctx), msg, fields)
}

func (l *jsonLogger) InfoContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(LevelInfo, correlation.FromContext(ctx), msg, fields)
}

func (l *jsonLogger) WarnContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(LevelWarn, correlation.FromContext(ctx), msg, fields)
}

func (l *jsonLogger) ErrorContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(LevelError, correlation.FromContext(ctx), msg, fields)
}

func levelName(lv Level) string {
	switch lv {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

func (l *jsonLogger) log(lv Level, correlationID, msg string, fields []interface{}) {
	if lv < l.level {
		return
	}

	fieldMap := make(map[string]interface{}, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		fieldMap[fmt.Sprintf("%v", fields[i])] = fields[i+1]
	}

	e := entry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Level:         levelName(lv),
		Message:       msg,
		CorrelationID: correlationID,
		Component:     l.component,
		Fields:        fieldMap,
	}

	if l.useJSON {
		data, err := json.Marshal(e)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to marshal log entry: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	parts := []string{e.Timestamp, "[" + e.Level + "]"}
	if e.CorrelationID != "" {
		parts = append(parts, "cid:"+e.CorrelationID)
	}
	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}
	parts = append(parts, e.Message)
	for k, v := range fieldMap {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	fmt.Println(strings.Join(parts, " "))
}

// NewNop returns a logger that discards everything, for tests
func NewNop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})                          {}
func (nopLogger) Info(string, ...interface{})                           {}
func (nopLogger) Warn(string, ...interface{})                           {}
func (nopLogger) Error(string, ...interface{})                          {}
func (nopLogger) DebugContext(context.Context, string, ...interface{})  {}
func (nopLogger) InfoContext(context.Context, string, ...interface{})   {}
func (nopLogger) WarnContext(context.Context, string, ...interface{})   {}
func (nopLogger) ErrorContext(context.Context, string, ...interface{})  {}
func (n nopLogger) WithComponent(string) Logger                         { return n }
