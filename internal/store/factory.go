package store

import (
	"fmt"

	"github.com/strikesim/strikesim/internal/config"
	"github.com/strikesim/strikesim/internal/store/gormdb"
	"github.com/strikesim/strikesim/internal/store/memory"
)

// NewBackend returns the storage backend selected by cfg.Type. The GORM
// variants share one backend; the DB connection in deps decides whether
// records land in Postgres or SQLite.
func NewBackend(cfg config.StorageConfig, deps gormdb.Dependencies) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "gorm", "postgres", "sqlite":
		return gormdb.New(deps), nil
	default:
		return nil, fmt.Errorf("unknown storage backend type: %s", cfg.Type)
	}
}
