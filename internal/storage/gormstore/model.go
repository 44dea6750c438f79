package gormstore

import (
	"time"

	"gorm.io/datatypes"
)

// Session is one application run.
type Session struct {
	ID              string `gorm:"primaryKey;size:36"`
	StartedAt       time.Time
	EndedAt         *time.Time
	ReferenceImages datatypes.JSON
	Detections      []Detection `gorm:"foreignKey:SessionID"`
}

func (Session) TableName() string { return "sessions" }

// Detection is one journaled History Record.
type Detection struct {
	ID         string `gorm:"primaryKey;size:36"`
	SessionID  string `gorm:"index;size:36"`
	Seq        uint64
	Name       string `gorm:"index"`
	ImageID    string `gorm:"index"`
	Matched    bool
	Detail     string
	DetectedAt time.Time `gorm:"index"`
	// Record holds the full record as written to the History Log.
	Record datatypes.JSON
}

func (Detection) TableName() string { return "detections" }

// Models lists everything AutoMigrate creates.
var Models = []any{&Session{}, &Detection{}}
