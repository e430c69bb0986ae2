package lists

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists list entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed list store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the list_entries table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS list_entries (
			list       VARCHAR(8) NOT NULL CHECK (list IN ('block', 'allow')),
			type       VARCHAR(8) NOT NULL CHECK (type IN ('phone', 'email')),
			value      VARCHAR(255) NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			added_by   VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (list, type, value)
		);
	`)
	return err
}

func (s *PostgresStore) Add(ctx context.Context, e *Entry) error {
	// Insert-or-ignore on the natural key: concurrent duplicate inserts must
	// not fail.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO list_entries (list, type, value, reason, added_by, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (list, type, value) DO NOTHING
	`, string(e.List), string(e.Type), e.Value, e.Reason, e.AddedBy)
	if err != nil {
		return fmt.Errorf("failed to add list entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, list Kind, typ IDType, value string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM list_entries WHERE list = $1 AND type = $2 AND value = $3
	`, string(list), string(typ), value)
	if err != nil {
		return fmt.Errorf("failed to remove list entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, list Kind, typ IDType, value string) (*Entry, error) {
	e := &Entry{List: list, Type: typ, Value: value}
	err := s.db.QueryRowContext(ctx, `
		SELECT reason, added_by, created_at
		FROM list_entries
		WHERE list = $1 AND type = $2 AND value = $3
	`, string(list), string(typ), value).Scan(&e.Reason, &e.AddedBy, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find list entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context, list Kind) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, value, reason, added_by, created_at
		FROM list_entries
		WHERE list = $1
		ORDER BY created_at DESC
	`, string(list))
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Entry
	for rows.Next() {
		e := &Entry{List: list}
		var typ string
		if err := rows.Scan(&typ, &e.Value, &e.Reason, &e.AddedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan list entry: %w", err)
		}
		e.Type = IDType(typ)
		result = append(result, e)
	}
	return result, rows.Err()
}
