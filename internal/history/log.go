// Package history keeps the ordered visit log of a session and presents it
// as a navigable list.
package history

import (
	"sync"

	"github.com/arcampus/arcampus/pkg/core"

	"github.com/google/uuid"
)

// IDGenerator produces stable record identifiers.
type IDGenerator func() string

// UUIDv7 generates time-sortable record identifiers.
func UUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Log is an append-only, insertion-ordered record of detections.
// Records are never removed, reordered, or deduplicated.
type Log struct {
	mu      sync.RWMutex
	records []core.HistoryRecord
	byID    map[string]int
	newID   IDGenerator
}

// NewLog creates an empty log. A nil generator defaults to UUIDv7.
func NewLog(gen IDGenerator) *Log {
	if gen == nil {
		gen = UUIDv7
	}
	return &Log{
		byID:  make(map[string]int),
		newID: gen,
	}
}

// Append stores rec and returns it with ID and Seq assigned.
func (l *Log) Append(rec core.HistoryRecord) core.HistoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.ID = l.newID()
	rec.Seq = uint64(len(l.records) + 1)
	l.byID[rec.ID] = len(l.records)
	l.records = append(l.records, rec)
	return rec
}

// All returns a snapshot of every record, oldest first.
func (l *Log) All() []core.HistoryRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.HistoryRecord(nil), l.records...)
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Get returns the record with the given ID.
func (l *Log) Get(id string) (core.HistoryRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok {
		return core.HistoryRecord{}, false
	}
	return l.records[i], true
}
