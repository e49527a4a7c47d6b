package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/dungeonmaster/internal/config"
	"github.com/MrWong99/dungeonmaster/internal/health"
	"github.com/MrWong99/dungeonmaster/pkg/kv"
	"github.com/MrWong99/dungeonmaster/pkg/kv/filekv"
	"github.com/MrWong99/dungeonmaster/pkg/kv/postgreskv"
	"github.com/MrWong99/dungeonmaster/pkg/kv/sqlitekv"
	"github.com/MrWong99/dungeonmaster/pkg/kv/supabasekv"
)

// Storage is an opened key-value backend together with its readiness checks
// and the function releasing it.
type Storage struct {
	Backend kv.Backend
	Checks  []health.Checker
	Close   func() error
}

// OpenStorage connects the backend selected by cfg.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	st := &Storage{Close: func() error { return nil }}
	switch cfg.Backend {
	case config.StorageMemory, "":
		st.Backend = kv.NewMemBackend(nil)

	case config.StorageFile:
		fs, err := filekv.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		st.Backend = fs

	case config.StorageSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
		}
		if !strings.HasPrefix(dsn, "sqlite://") {
			dsn = "sqlite://" + dsn
		}
		db, err := sqlitekv.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		st.Backend = db
		st.Checks = append(st.Checks, health.Ping("sqlite", db))
		st.Close = db.Close

	case config.StoragePostgres:
		db, pool, err := postgreskv.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		st.Backend = db
		st.Checks = append(st.Checks, health.Ping("postgres", pool))
		st.Close = func() error {
			pool.Close()
			return nil
		}

	case config.StorageSupabase:
		db, err := supabasekv.New(cfg.SupabaseURL, cfg.SupabaseKey, supabasekv.WithTable(cfg.Table))
		if err != nil {
			return nil, err
		}
		st.Backend = db

	default:
		return nil, fmt.Errorf("app: unknown storage backend %q", cfg.Backend)
	}
	st.Checks = append([]health.Checker{health.Storage(st.Backend)}, st.Checks...)
	return st, nil
}
