package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/arcampus/arcampus/internal/config"
	"github.com/arcampus/arcampus/internal/database"
	"github.com/arcampus/arcampus/internal/storage"
	"github.com/arcampus/arcampus/internal/storage/gormstore"
	"github.com/arcampus/arcampus/internal/storage/memory"
	"github.com/arcampus/arcampus/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Backend    = (*memory.Backend)(nil)
	_ storage.Exportable = (*memory.Backend)(nil)
	_ storage.Backend    = (*gormstore.Backend)(nil)
	_ storage.Backend    = storage.Nop{}
)

func TestNewBackend_Memory(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{OutputDir: t.TempDir()},
	}, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)
}

func TestNewBackend_None(t *testing.T) {
	for _, typ := range []string{"none", ""} {
		b, err := storage.NewBackend(config.StorageConfig{Type: typ}, nil, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, storage.Nop{}, b)

		require.NoError(t, b.Init())
		require.NoError(t, b.StartSession(&core.SessionInfo{ID: "s"}))
		require.NoError(t, b.RecordDetection(core.HistoryRecord{}))
		require.NoError(t, b.EndSession())
		require.NoError(t, b.Close())
	}
}

func TestNewBackend_Sqlite(t *testing.T) {
	db := database.NewManager(config.DBConfig{}, zerolog.Nop())
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "j.db")},
	}, db, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &gormstore.Backend{}, b)

	require.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestNewBackend_SqliteNeedsManager(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "sqlite"}, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "websocket"}, nil, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}
