package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists transaction history in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed history store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the history tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS merchants (
			id         VARCHAR(64) PRIMARY KEY,
			name       VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id             VARCHAR(64) PRIMARY KEY,
			merchant_id    VARCHAR(64) NOT NULL,
			customer_phone VARCHAR(20) NOT NULL DEFAULT '',
			customer_email VARCHAR(255) NOT NULL DEFAULT '',
			agent_platform VARCHAR(64) NOT NULL DEFAULT '',
			amount         NUMERIC(12,2) NOT NULL,
			currency       VARCHAR(8) NOT NULL DEFAULT 'USD',
			status         VARCHAR(12) NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'completed', 'failed', 'chargeback', 'fraud')),
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_phone
			ON transactions (customer_phone, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_email
			ON transactions (customer_email, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_merchant
			ON transactions (merchant_id, created_at DESC);
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, tx *Transaction) error {
	status := tx.Status
	if status == "" {
		status = StatusPending
	}
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, merchant_id, customer_phone, customer_email, agent_platform, amount, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		tx.ID, tx.MerchantID, tx.CustomerPhone, tx.CustomerEmail,
		tx.AgentPlatform, tx.Amount, tx.Currency, string(status), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s not found", id)
	}
	return nil
}

func (s *PostgresStore) CustomerHistory(ctx context.Context, phone, email string) (*CustomerHistory, error) {
	h := &CustomerHistory{}
	var firstSeen sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'completed'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
			MIN(created_at)
		FROM transactions
		WHERE ($1 <> '' AND customer_phone = $1)
		   OR ($2 <> '' AND customer_email = $2)
	`, phone, email).Scan(&h.PreviousOrders, &h.LifetimeValue, &firstSeen)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer history: %w", err)
	}
	if firstSeen.Valid {
		h.FirstSeen = firstSeen.Time
	}
	return h, nil
}

func (s *PostgresStore) MerchantStats(ctx context.Context, merchantID string) (*MerchantStats, error) {
	stats := &MerchantStats{}

	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM merchants WHERE id = $1)`, merchantID).Scan(&stats.Known)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve merchant: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(amount), 0)
		FROM transactions
		WHERE merchant_id = $1 AND status = 'completed'
	`, merchantID).Scan(&stats.CompletedOrders, &stats.AvgOrderValue)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchant stats: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, phone, email string, since time.Time) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, merchant_id, customer_phone, customer_email, agent_platform,
		       amount, currency, status, created_at
		FROM transactions
		WHERE created_at >= $3
		  AND (($1 <> '' AND customer_phone = $1) OR ($2 <> '' AND customer_email = $2))
		ORDER BY created_at DESC
	`, phone, email, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Transaction
	for rows.Next() {
		var tx Transaction
		var status string
		if err := rows.Scan(&tx.ID, &tx.MerchantID, &tx.CustomerPhone, &tx.CustomerEmail,
			&tx.AgentPlatform, &tx.Amount, &tx.Currency, &status, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Status = Status(status)
		result = append(result, &tx)
	}
	return result, rows.Err()
}

func (s *PostgresStore) AddMerchant(ctx context.Context, m *Merchant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchants (id, name, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO NOTHING
	`, m.ID, m.Name)
	if err != nil {
		return fmt.Errorf("failed to add merchant: %w", err)
	}
	return nil
}
