// Package logging writes structured JSONL events, one file per session plus a
// shared errors file. A nil *Logger is safe to call and logs nothing.
package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is the severity of an event.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Category tags events by subsystem.
type Category string

const (
	CategoryTool    Category = "tool"
	CategoryProcess Category = "process"
	CategoryBrowser Category = "browser"
	CategoryPolicy  Category = "policy"
	CategoryConfig  Category = "config"
	CategorySystem  Category = "system"
)

// Event is a single log record.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Category  Category       `json:"category"`
	EventType string         `json:"event_type"`
	Details   map[string]any `json:"details,omitempty"`
}

// Logger appends events to a session log, duplicating warn/error events into
// a shared errors file so failures are findable across sessions.
type Logger struct {
	mu       sync.Mutex
	min      Level
	session  *os.File
	errorLog *os.File
}

// New creates a logger rooted at dir. The session file is named after
// sessionID; errors.jsonl is shared.
func New(dir, sessionID string, min Level) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	session, err := os.OpenFile(filepath.Join(dir, sessionID+".jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	errorLog, err := os.OpenFile(filepath.Join(dir, "errors.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("open error log: %w", err)
	}
	if _, ok := levelRank[min]; !ok {
		min = LevelInfo
	}
	return &Logger{min: min, session: session, errorLog: errorLog}, nil
}

// Log writes an event if it meets the minimum level.
func (l *Logger) Log(level Level, category Category, eventType string, details map[string]any) {
	if l == nil {
		return
	}
	if levelRank[level] < levelRank[l.min] {
		return
	}
	ev := Event{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Category:  category,
		EventType: eventType,
		Details:   details,
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != nil {
		l.session.Write(line)
	}
	if levelRank[level] >= levelRank[LevelWarn] && l.errorLog != nil {
		l.errorLog.Write(line)
	}
}

func (l *Logger) Debug(category Category, eventType string, details map[string]any) {
	l.Log(LevelDebug, category, eventType, details)
}

func (l *Logger) Info(category Category, eventType string, details map[string]any) {
	l.Log(LevelInfo, category, eventType, details)
}

func (l *Logger) Warn(category Category, eventType string, details map[string]any) {
	l.Log(LevelWarn, category, eventType, details)
}

func (l *Logger) Error(category Category, eventType string, details map[string]any) {
	l.Log(LevelError, category, eventType, details)
}

// Close flushes and closes both files. Safe on nil and after a prior Close.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	if l.session != nil {
		if err := l.session.Close(); err != nil {
			errs = append(errs, err)
		}
		l.session = nil
	}
	if l.errorLog != nil {
		if err := l.errorLog.Close(); err != nil {
			errs = append(errs, err)
		}
		l.errorLog = nil
	}
	return errors.Join(errs...)
}
