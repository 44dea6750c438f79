package storage

import (
	"fmt"

	"github.com/arcampus/arcampus/internal/config"
	"github.com/arcampus/arcampus/internal/database"
	"github.com/arcampus/arcampus/internal/storage/gormstore"
	"github.com/arcampus/arcampus/internal/storage/memory"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration. Database
// backed types connect through db.
func NewBackend(cfg config.StorageConfig, db *database.Manager, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres", "sqlite":
		if db == nil {
			return nil, fmt.Errorf("%s backend needs a database manager", cfg.Type)
		}
		if err := db.Connect(cfg.Type, cfg.SQLite.Path); err != nil {
			return nil, err
		}
		return gormstore.New(db.DB, log), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	case "none", "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
