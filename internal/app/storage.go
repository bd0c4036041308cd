package app

import (
	"context"

	"github.com/adanyl0v/tracker/internal/config"
	"github.com/adanyl0v/tracker/internal/storage"
	"github.com/adanyl0v/tracker/internal/storage/memory"
	"github.com/adanyl0v/tracker/internal/storage/postgres"
)

var globalRepository storage.Repository

// MustInitStorage opens the configured storage backend. With the postgres
// driver it connects the pool, which DisconnectPostgres closes.
func MustInitStorage() {
	cfg := config.Global()

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		globalRepository = memory.New()
		globalLogger.Warn().Msg("using in-memory storage, records are lost on restart")
	default:
		MustConnectPostgres()
		store := postgres.New(componentLogger("postgres"), globalPostgresPool)
		if cfg.Postgres.MigrateOnStart {
			mustMigrate(store)
		}
		globalRepository = store
	}

	globalLogger.Info().
		Str("driver", cfg.Storage.Driver).
		Msg("initialized storage")
}

// MustMigratePostgres applies the embedded schema and returns.
func MustMigratePostgres() {
	if config.Global().Storage.Driver == config.StorageDriverMemory {
		globalLogger.Info().Msg("in-memory storage needs no migration")
		return
	}

	MustConnectPostgres()
	defer DisconnectPostgres()

	mustMigrate(postgres.New(componentLogger("postgres"), globalPostgresPool))
}

func mustMigrate(store *postgres.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), config.Global().Postgres.ConnectTimeout)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to migrate postgres")
		panic(err)
	}
}
