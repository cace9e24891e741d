package database

import (
	"fmt"
	"os"
	"path/filepath"

	"consent-go/internal/config"
)

// NewDecisionLogFromConfig creates a decision log based on the database config type.
func NewDecisionLogFromConfig(cfg config.DatabaseConfig, siteID string) (*SQLiteDecisionLog, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, siteID+".db")
		return NewSQLiteDecisionLog(dbPath)
	case "memory":
		return NewSQLiteDecisionLog(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
