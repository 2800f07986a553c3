package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"ppcp-backend/internal/config"
	"ppcp-backend/internal/database"
	"ppcp-backend/internal/repositories"
	"ppcp-backend/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// State is an opened state backend. Pool is nil for the memory driver.
type State struct {
	Repo  repositories.StateRepository
	Pool  *pgxpool.Pool
	sqlDB *sql.DB
}

// OpenState prepares the configured state backend. For postgres it connects,
// applies pending migrations and exposes the pool through database/sql.
func OpenState(ctx context.Context, cfg *config.Config) (*State, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Printf("[Storage] Using in-memory state; data is lost on restart")
		return &State{Repo: repositories.NewMemoryStateRepository()}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}

	if err := database.NewMigrator(pool, migrations.FS).RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	log.Printf("[Storage] Connected to postgres at %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	return &State{
		Repo:  repositories.NewPostgresStateRepository(sqlDB),
		Pool:  pool,
		sqlDB: sqlDB,
	}, nil
}

// Close releases the database connections
func (s *State) Close() {
	if s.sqlDB != nil {
		s.sqlDB.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}
