package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// StateRepository is a string key-value store holding whole serialized documents
type StateRepository interface {
	// Get returns the value for key; ok is false when the key has never been written
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Put replaces the value for key in one write
	Put(ctx context.Context, key, value string) error
}

// PostgresStateRepository keeps state in the app_state table
type PostgresStateRepository struct {
	DB *sql.DB
}

func NewPostgresStateRepository(db *sql.DB) *PostgresStateRepository {
	return &PostgresStateRepository{DB: db}
}

func (r *PostgresStateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT state_value FROM app_state WHERE state_key = $1`

	var value string
	err := r.DB.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *PostgresStateRepository) Put(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO app_state (state_key, state_value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (state_key) DO UPDATE
		SET state_value = EXCLUDED.state_value, updated_at = NOW()
	`

	_, err := r.DB.ExecContext(ctx, query, key, value)
	return err
}

// MemoryStateRepository is a process-local StateRepository, used when no
// database is configured and in tests
type MemoryStateRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{values: make(map[string]string)}
}

func (r *MemoryStateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *MemoryStateRepository) Put(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}
