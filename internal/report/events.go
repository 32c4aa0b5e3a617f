package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the pipeline stage an event belongs to
type EventType string

const (
	EventDiscover EventType = "discover"
	EventFlatten  EventType = "flatten"
	EventCreate   EventType = "create"
	EventLoad     EventType = "load"
	EventQuery    EventType = "query"
	EventDrop     EventType = "drop"
	EventError    EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event is a single line of the JSONL event log
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	RunID     string            `json:"run_id,omitempty"`
	File      string            `json:"file,omitempty"`
	Table     string            `json:"table,omitempty"`
	Rows      int               `json:"rows,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file. A nil *EventLogger is a valid no-op logger.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
	runID    string
}

// NewEventLogger creates artifacts/events-<timestamp>.jsonl under outputDir.
// Events below minLevel are discarded.
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := fmt.Sprintf("events-%s.jsonl", time.Now().Format("20060102-150405"))
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// SetRunID stamps every following event with runID
func (l *EventLogger) SetRunID(runID string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runID = runID
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

// LogDiscover records a source file picked up by the flattener
func (l *EventLogger) LogDiscover(path string, sizeBytes int64) error {
	return l.Log(&Event{
		Level: LevelDebug,
		Event: EventDiscover,
		File:  path,
		Extra: map[string]string{"size_bytes": fmt.Sprintf("%d", sizeBytes)},
	})
}

// LogFlatten records one source file folded into the combined file
func (l *EventLogger) LogFlatten(path string, rowsRead, rowsKept int) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventFlatten,
		File:  path,
		Rows:  rowsKept,
		Extra: map[string]string{
			"rows_read":    fmt.Sprintf("%d", rowsRead),
			"rows_dropped": fmt.Sprintf("%d", rowsRead-rowsKept),
		},
	})
}

// LogTable records a table lifecycle step (create, load, query, drop)
func (l *EventLogger) LogTable(event EventType, table string, rows int, duration time.Duration, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}
	return l.Log(&Event{
		Level:    level,
		Event:    event,
		Table:    table,
		Rows:     rows,
		Duration: duration.Milliseconds(),
		Error:    errMsg,
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, file string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		File:  file,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}

// LevelFor maps console verbosity flags onto an event level
func LevelFor(verbose, quiet bool) EventLevel {
	switch {
	case quiet:
		return LevelWarning
	case verbose:
		return LevelDebug
	default:
		return LevelInfo
	}
}
