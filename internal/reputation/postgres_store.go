package reputation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresCounterStore persists counters in PostgreSQL. Increments run as a
// single upsert so concurrent writers never lose updates.
type PostgresCounterStore struct {
	db *sql.DB
}

// NewPostgresCounterStore creates a PostgreSQL-backed counter store.
func NewPostgresCounterStore(db *sql.DB) *PostgresCounterStore {
	return &PostgresCounterStore{db: db}
}

// Migrate creates the agent_reputation table if it doesn't exist.
func (s *PostgresCounterStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS agent_reputation (
			platform           VARCHAR(64) PRIMARY KEY,
			total_transactions BIGINT NOT NULL DEFAULT 0,
			success_count      BIGINT NOT NULL DEFAULT 0,
			fraud_count        BIGINT NOT NULL DEFAULT 0,
			chargeback_count   BIGINT NOT NULL DEFAULT 0,
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func (s *PostgresCounterStore) Increment(ctx context.Context, platform string, d Delta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_reputation
			(platform, total_transactions, success_count, fraud_count, chargeback_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (platform) DO UPDATE SET
			total_transactions = agent_reputation.total_transactions + EXCLUDED.total_transactions,
			success_count      = agent_reputation.success_count + EXCLUDED.success_count,
			fraud_count        = agent_reputation.fraud_count + EXCLUDED.fraud_count,
			chargeback_count   = agent_reputation.chargeback_count + EXCLUDED.chargeback_count,
			updated_at         = NOW()
	`, strings.ToLower(platform), d.Transactions, d.Successes, d.Frauds, d.Chargebacks)
	if err != nil {
		return fmt.Errorf("failed to increment reputation counters: %w", err)
	}
	return nil
}

func (s *PostgresCounterStore) Get(ctx context.Context, platform string) (*Counters, error) {
	c := &Counters{}
	err := s.db.QueryRowContext(ctx, `
		SELECT platform, total_transactions, success_count, fraud_count, chargeback_count, updated_at
		FROM agent_reputation
		WHERE platform = $1
	`, strings.ToLower(platform)).Scan(
		&c.Platform, &c.TotalTransactions, &c.SuccessCount, &c.FraudCount, &c.ChargebackCount, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reputation counters: %w", err)
	}
	return c, nil
}

func (s *PostgresCounterStore) All(ctx context.Context) ([]*Counters, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, total_transactions, success_count, fraud_count, chargeback_count, updated_at
		FROM agent_reputation
		ORDER BY platform
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reputation counters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Counters
	for rows.Next() {
		c := &Counters{}
		if err := rows.Scan(&c.Platform, &c.TotalTransactions, &c.SuccessCount,
			&c.FraudCount, &c.ChargebackCount, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reputation counters: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
