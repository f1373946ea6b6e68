package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/oportunia/internal/db"
)

// PostgresStore keeps settings in the app_settings table.
type PostgresStore struct {
	db db.DB
}

func NewPostgresStore(db db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var value []byte
	err := s.db.QueryRow(ctx,
		"SELECT value FROM app_settings WHERE key = $1", key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get setting %q: %w", key, err)
	}
	return json.RawMessage(value), nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO app_settings (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, []byte(value),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM app_settings WHERE key = $1", key)
	if err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}

// Take deletes the row and returns its prior value in one statement, so a
// value is handed out at most once.
func (s *PostgresStore) Take(ctx context.Context, key string) (json.RawMessage, error) {
	var value []byte
	err := s.db.QueryRow(ctx,
		"DELETE FROM app_settings WHERE key = $1 RETURNING value", key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take setting %q: %w", key, err)
	}
	return json.RawMessage(value), nil
}
