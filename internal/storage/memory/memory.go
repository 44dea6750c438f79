package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/arcampus/arcampus/internal/config"
	"github.com/arcampus/arcampus/pkg/core"
)

// ErrNoSession is returned when recording outside StartSession/EndSession.
var ErrNoSession = errors.New("no active session")

// Backend keeps the session's detections in memory and exports them to JSON
// when the session ends.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.SessionInfo
	records []core.HistoryRecord

	lastExportPath string
	now            func() time.Time
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg, now: time.Now}
}

func (b *Backend) Init() error {
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// StartSession begins journaling a new session, dropping anything left from
// a previous one.
func (b *Backend) StartSession(s *core.SessionInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.records = nil
	return nil
}

// EndSession exports the session and clears it.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	err := b.exportJSON()
	b.session = nil
	b.records = nil
	return err
}

// RecordDetection appends a record to the current session.
func (b *Backend) RecordDetection(rec core.HistoryRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.records = append(b.records, rec)
	return nil
}

// Records returns a copy of the current session's records.
func (b *Backend) Records() []core.HistoryRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.HistoryRecord(nil), b.records...)
}

// ExportedFilePath returns the path of the last export, or "".
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
