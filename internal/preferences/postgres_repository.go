package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Values are stored as JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL preferences repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the preferences table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS preferences (
			owner_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (owner_id, key)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating preferences table: %w", err)
	}
	return nil
}

// Get retrieves a single preference for an owner.
func (r *PostgresRepository) Get(ctx context.Context, ownerID, key string) (*Preference, error) {
	query := `
		SELECT owner_id, key, value, updated_at
		FROM preferences
		WHERE owner_id = $1 AND key = $2
	`

	var (
		pref      Preference
		valueJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, ownerID, key).Scan(
		&pref.OwnerID,
		&pref.Key,
		&valueJSON,
		&pref.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreferenceNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(valueJSON, &pref.Value); err != nil {
		return nil, fmt.Errorf("decoding preference %s: %w", key, err)
	}

	return &pref, nil
}

// List retrieves all stored preferences for an owner.
func (r *PostgresRepository) List(ctx context.Context, ownerID string) (map[string]*Preference, error) {
	query := `
		SELECT owner_id, key, value, updated_at
		FROM preferences
		WHERE owner_id = $1
		ORDER BY key
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make(map[string]*Preference)
	for rows.Next() {
		var (
			pref      Preference
			valueJSON []byte
		)

		if err := rows.Scan(&pref.OwnerID, &pref.Key, &valueJSON, &pref.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(valueJSON, &pref.Value); err != nil {
			return nil, fmt.Errorf("decoding preference %s: %w", pref.Key, err)
		}

		prefs[pref.Key] = &pref
	}

	return prefs, rows.Err()
}

// Set creates or updates a preference.
func (r *PostgresRepository) Set(ctx context.Context, pref *Preference) error {
	valueJSON, err := json.Marshal(pref.Value)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO preferences (owner_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query, pref.OwnerID, pref.Key, valueJSON, pref.UpdatedAt)
	return err
}

// DeleteOwner removes every preference stored for an owner.
func (r *PostgresRepository) DeleteOwner(ctx context.Context, ownerID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM preferences WHERE owner_id = $1`, ownerID)
	return err
}
