// Package storage journals detections to a configured backend.
package storage

import "github.com/arcampus/arcampus/pkg/core"

// Backend is the write-only detection journal. It is never read back into the
// History Log.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.SessionInfo) error
	EndSession() error

	RecordDetection(rec core.HistoryRecord) error
}

// Exportable is an optional interface for backends that write a file per
// session.
type Exportable interface {
	ExportedFilePath() string
}

// Nop discards everything. It backs storage.type "none".
type Nop struct{}

func (Nop) Init() error                              { return nil }
func (Nop) Close() error                             { return nil }
func (Nop) StartSession(*core.SessionInfo) error     { return nil }
func (Nop) EndSession() error                        { return nil }
func (Nop) RecordDetection(core.HistoryRecord) error { return nil }
