package database

import (
	"fmt"
	"os"
	"path/filepath"

	"qrganizer/internal/config"
	"qrganizer/internal/inventory"
)

// DatabaseFileName is the SQLite file created under data_dir.
const DatabaseFileName = "qrganizer.db"

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock inventory.Clock, logger inventory.Logger) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, DatabaseFileName), clock, logger)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock, logger)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
