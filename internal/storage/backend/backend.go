// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/groupcal/internal/config"
	"github.com/mmynk/groupcal/internal/storage"
	"github.com/mmynk/groupcal/internal/storage/gormstore"
	"github.com/mmynk/groupcal/internal/storage/mongostore"
	"github.com/mmynk/groupcal/internal/storage/postgres"
	"github.com/mmynk/groupcal/internal/storage/rest"
	"github.com/mmynk/groupcal/internal/storage/sqlite"
)

// Open connects to the backend named by cfg.Backend. It is called once at startup and the
// result is passed to whatever needs a store.
func Open(ctx context.Context, cfg config.StoreConfig) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)

	switch cfg.Backend {
	case config.BackendSQLite:
		store, err = sqlite.New(cfg.SQLitePath)
	case config.BackendGorm:
		store, err = gormstore.New(cfg.GormDSN)
	case config.BackendPostgres:
		store, err = postgres.New(ctx, cfg.DatabaseURL)
	case config.BackendMongo:
		store, err = mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.BackendREST:
		store = rest.New(cfg.RESTBaseURL, cfg.RESTToken, cfg.RESTTimeout)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}

	slog.Info("store opened", "backend", cfg.Backend)
	return store, nil
}
