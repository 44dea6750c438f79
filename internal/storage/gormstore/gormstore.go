// Package gormstore journals detections to SQLite or Postgres through gorm.
package gormstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arcampus/arcampus/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoSession is returned when recording outside StartSession/EndSession.
var ErrNoSession = errors.New("no active session")

// Backend is the gorm journal backend.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger

	mu      sync.Mutex
	session *Session
	written int
	now     func() time.Time
}

// New wraps an open database. Init migrates the schema.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log, now: time.Now}
}

func (b *Backend) Init() error {
	if b.db == nil {
		return errors.New("gormstore: nil database")
	}
	if err := b.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.log.Info().Str("dialect", b.db.Dialector.Name()).Msg("Journal schema migrated")
	return nil
}

// Close ends an open session and closes the connection pool.
func (b *Backend) Close() error {
	b.mu.Lock()
	open := b.session != nil
	b.mu.Unlock()
	if open {
		if err := b.EndSession(); err != nil {
			b.log.Error().Err(err).Msg("Failed to end session on close")
		}
	}

	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (b *Backend) StartSession(s *core.SessionInfo) error {
	images, err := json.Marshal(s.ReferenceImages)
	if err != nil {
		return err
	}
	row := &Session{
		ID:              s.ID,
		StartedAt:       s.StartedAt.UTC(),
		ReferenceImages: datatypes.JSON(images),
	}
	if err := b.db.Create(row).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	b.mu.Lock()
	b.session = row
	b.written = 0
	b.mu.Unlock()

	b.log.Info().Str("session", s.ID).Msg("Journal session started")
	return nil
}

func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	ended := b.now().UTC()
	err := b.db.Model(&Session{}).
		Where("id = ?", b.session.ID).
		Update("ended_at", ended).Error
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	b.log.Info().Str("session", b.session.ID).Int("detections", b.written).Msg("Journal session ended")
	b.session = nil
	return nil
}

func (b *Backend) RecordDetection(rec core.HistoryRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	row := &Detection{
		ID:         rec.ID,
		SessionID:  b.session.ID,
		Seq:        rec.Seq,
		Name:       rec.Name,
		ImageID:    rec.ImageID,
		Matched:    rec.Matched,
		Detail:     rec.Detail,
		DetectedAt: rec.Timestamp.UTC(),
		Record:     datatypes.JSON(raw),
	}
	// record IDs are stable, so a repeated write is a no-op
	res := b.db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return fmt.Errorf("failed to write detection: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}
	b.written++
	return nil
}
