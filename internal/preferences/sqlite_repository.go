package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var _ Repository = (*SQLiteRepository)(nil)

// DefaultSQLitePath is used when no path is configured.
const DefaultSQLitePath = "aliweather.db"

// SQLiteRepository stores preferences in a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (and creates if needed) the SQLite database at path.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultSQLitePath
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	r := &SQLiteRepository{db: db}
	if err := r.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			owner_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (owner_id, key)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initializing sqlite schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Get retrieves a single preference for an owner.
func (r *SQLiteRepository) Get(ctx context.Context, ownerID, key string) (*Preference, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT owner_id, key, value, updated_at FROM preferences WHERE owner_id = ? AND key = ?`,
		ownerID, key)

	pref, err := scanSQLitePreference(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPreferenceNotFound
	}
	return pref, err
}

// List retrieves all stored preferences for an owner.
func (r *SQLiteRepository) List(ctx context.Context, ownerID string) (map[string]*Preference, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner_id, key, value, updated_at FROM preferences WHERE owner_id = ? ORDER BY key`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make(map[string]*Preference)
	for rows.Next() {
		pref, err := scanSQLitePreference(rows.Scan)
		if err != nil {
			return nil, err
		}
		prefs[pref.Key] = pref
	}
	return prefs, rows.Err()
}

// Set creates or updates a preference.
func (r *SQLiteRepository) Set(ctx context.Context, pref *Preference) error {
	valueJSON, err := json.Marshal(pref.Value)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO preferences (owner_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		pref.OwnerID, pref.Key, string(valueJSON), pref.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// DeleteOwner removes every preference stored for an owner.
func (r *SQLiteRepository) DeleteOwner(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM preferences WHERE owner_id = ?`, ownerID)
	return err
}

func scanSQLitePreference(scan func(dest ...any) error) (*Preference, error) {
	var (
		pref      Preference
		valueJSON string
		updatedAt string
	)
	if err := scan(&pref.OwnerID, &pref.Key, &valueJSON, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(valueJSON), &pref.Value); err != nil {
		return nil, fmt.Errorf("decoding preference %s: %w", pref.Key, err)
	}
	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at for %s: %w", pref.Key, err)
	}
	pref.UpdatedAt = t
	return &pref, nil
}
