package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/alumni-onboard/internal/database"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionStore keeps one device's session facts in Postgres. It
// satisfies session.Store.
type SessionStore struct {
	pool     *pgxpool.Pool
	deviceID string
}

// NewSessionStore creates a store scoped to deviceID.
func NewSessionStore(db *database.DB, deviceID string) *SessionStore {
	return &SessionStore{pool: db.Pool, deviceID: deviceID}
}

func (s *SessionStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM session_facts WHERE device_id = $1 AND key = $2`

	var value string
	err := s.pool.QueryRow(ctx, query, s.deviceID, key).Scan(&value)
	if err != nil {
		if err = database.MapPostgresError(err); errors.Is(err, models.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read session fact %s: %w", key, err)
	}

	return value, true, nil
}

func (s *SessionStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO session_facts (device_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (device_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, s.deviceID, key, value); err != nil {
		return fmt.Errorf("failed to write session fact %s: %w", key, database.MapPostgresError(err))
	}

	return nil
}
