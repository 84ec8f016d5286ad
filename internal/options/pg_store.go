package options

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"formexport/pkg/db"
)

// PGStore keeps options in the "options" table (name text primary key, value jsonb).
type PGStore struct {
	db db.Querier
}

func NewPGStore(db db.Querier) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
        SELECT value
        FROM options
        WHERE name = $1
    `
	var value []byte
	err := s.db.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *PGStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
        INSERT INTO options (name, value, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (name) DO UPDATE
        SET value = EXCLUDED.value, updated_at = NOW()
    `
	_, err := s.db.Exec(ctx, query, key, value)
	return err
}

func (s *PGStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM options WHERE name = $1`, key)
	return err
}
