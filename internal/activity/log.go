// Package activity keeps the bounded, user-visible activity log.
package activity

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Capacity is the number of entries kept; older entries are evicted.
const Capacity = 100

// Level is the severity class of an entry
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Entry is one line of the activity log
type Entry struct {
	ID      string    `json:"id"`
	Level   Level     `json:"type"`
	Message string    `json:"message"`
	Time    time.Time `json:"timestamp"`
}

// Log is a newest-first bounded list of entries. Every entry is mirrored to
// the operational logger at the matching level.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	lastID   int64
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an empty log with the default capacity.
func New(logger *zap.Logger) *Log {
	return NewWithCapacity(Capacity, logger)
}

// NewWithCapacity creates an empty log holding at most capacity entries.
func NewWithCapacity(capacity int, logger *zap.Logger) *Log {
	if capacity < 1 {
		capacity = Capacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		logger:   logger,
		now:      time.Now,
	}
}

// Add prepends an entry and returns it.
func (l *Log) Add(level Level, message string) Entry {
	l.mu.Lock()
	now := l.now()
	// ids derive from the timestamp and stay unique within a millisecond
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id

	e := Entry{ID: strconv.FormatInt(id, 10), Level: level, Message: message, Time: now}
	l.entries = append(l.entries, Entry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = e
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	l.mu.Unlock()

	l.mirror(e)
	return e
}

func (l *Log) Info(msg string) Entry    { return l.Add(LevelInfo, msg) }
func (l *Log) Success(msg string) Entry { return l.Add(LevelSuccess, msg) }
func (l *Log) Warning(msg string) Entry { return l.Add(LevelWarning, msg) }
func (l *Log) Error(msg string) Entry   { return l.Add(LevelError, msg) }

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = l.entries[:0]
	l.mu.Unlock()
}

func (l *Log) mirror(e Entry) {
	fields := []zap.Field{zap.String("activity_id", e.ID), zap.String("type", string(e.Level))}
	switch e.Level {
	case LevelError:
		l.logger.Error(e.Message, fields...)
	case LevelWarning:
		l.logger.Warn(e.Message, fields...)
	default:
		l.logger.Info(e.Message, fields...)
	}
}
