package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"alarmd/internal/alarm"
	"alarmd/internal/config"
)

// NewStoreFromConfig creates a SnapshotStore based on the snapshot config
// type.
func NewStoreFromConfig(cfg config.SnapshotConfig) (alarm.SnapshotStore, error) {
	switch cfg.Type {
	case "json":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for json snapshot store")
		}
		return NewJSONStore(cfg.Path)
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite snapshot store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating snapshot data dir: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "alarms.db"))
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot store type: %s", cfg.Type)
	}
}
