package backend

import (
	"budget_tracker/internal/config"          // Backend selection
	"budget_tracker/internal/store"           // Persistence port
	"budget_tracker/internal/store/gormstore" // MySQL store
	"budget_tracker/internal/store/memstore"  // In-memory store
	"budget_tracker/internal/store/pgstore"   // PostgreSQL store
	"context"                                 // Contexts for store calls
	"fmt"                                     // Error wrapping

	"github.com/sirupsen/logrus" // Structured logging
)

// Open returns the store selected by cfg.StoreBackend. The caller owns it and
// must Close it on shutdown.
func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	retry := store.RetryPolicy{MaxAttempts: cfg.TxMaxAttempts, BaseDelay: cfg.TxRetryDelay}
	switch cfg.StoreBackend {
	case config.BackendMySQL:
		s, err := gormstore.Open(cfg.MySQLDSN(), retry)
		if err != nil {
			return nil, fmt.Errorf("initialize mysql store: %w", err)
		}
		logrus.WithFields(logrus.Fields{"backend": cfg.StoreBackend, "host": cfg.DBHost, "db": cfg.DBName}).Info("Store initialized")
		return s, nil
	case config.BackendPostgres:
		s, err := pgstore.Open(ctx, cfg.PostgresURL(), retry)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		logrus.WithField("backend", cfg.StoreBackend).Info("Store initialized")
		return s, nil
	case config.BackendMemory:
		logrus.WithField("backend", cfg.StoreBackend).Warn("Using in-memory store, data is lost on restart")
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}
