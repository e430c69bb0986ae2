package reputation

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/agentgate/agentgate/internal/idgen"
)

// PostgresSnapshotStore implements SnapshotStore backed by PostgreSQL.
type PostgresSnapshotStore struct {
	db *sql.DB
}

// NewPostgresSnapshotStore creates a PostgreSQL-backed snapshot store.
func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// Migrate creates the reputation_snapshots table if it doesn't exist.
func (p *PostgresSnapshotStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reputation_snapshots (
			id                 VARCHAR(64) PRIMARY KEY,
			platform           VARCHAR(64) NOT NULL,
			base_score         INT NOT NULL,
			total_transactions BIGINT NOT NULL,
			success_count      BIGINT NOT NULL,
			fraud_count        BIGINT NOT NULL,
			chargeback_count   BIGINT NOT NULL,
			fraud_rate         DOUBLE PRECISION NOT NULL,
			chargeback_rate    DOUBLE PRECISION NOT NULL,
			success_rate       DOUBLE PRECISION NOT NULL,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_rep_snapshots_platform
			ON reputation_snapshots(platform, created_at DESC);
	`)
	return err
}

func (p *PostgresSnapshotStore) SaveBatch(ctx context.Context, snaps []*Snapshot) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reputation_snapshots
			(id, platform, base_score, total_transactions, success_count, fraud_count,
			 chargeback_count, fraud_rate, chargeback_rate, success_rate, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range snaps {
		if s.ID == "" {
			s.ID = idgen.WithPrefix("snap_")
		}
		_, err := stmt.ExecContext(ctx, s.ID, strings.ToLower(s.Platform), s.BaseScore,
			s.TotalTransactions, s.SuccessCount, s.FraudCount, s.ChargebackCount,
			s.FraudRate, s.ChargebackRate, s.SuccessRate, s.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *PostgresSnapshotStore) Query(ctx context.Context, q HistoryQuery) ([]*Snapshot, error) {
	query := `
		SELECT id, platform, base_score, total_transactions, success_count, fraud_count,
			   chargeback_count, fraud_rate, chargeback_rate, success_rate, created_at
		FROM reputation_snapshots
		WHERE platform = $1`

	args := []interface{}{strings.ToLower(q.Platform)}
	argIdx := 2

	if !q.From.IsZero() {
		query += " AND created_at >= $" + strconv.Itoa(argIdx)
		args = append(args, q.From)
		argIdx++
	}
	if !q.To.IsZero() {
		query += " AND created_at <= $" + strconv.Itoa(argIdx)
		args = append(args, q.To)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT $" + strconv.Itoa(argIdx)
	args = append(args, limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanSnapshots(rows)
}

func (p *PostgresSnapshotStore) Latest(ctx context.Context, platform string) (*Snapshot, error) {
	const q = `
		SELECT id, platform, base_score, total_transactions, success_count, fraud_count,
			   chargeback_count, fraud_rate, chargeback_rate, success_rate, created_at
		FROM reputation_snapshots
		WHERE platform = $1
		ORDER BY created_at DESC
		LIMIT 1`

	s := &Snapshot{}
	err := p.db.QueryRowContext(ctx, q, strings.ToLower(platform)).Scan(
		&s.ID, &s.Platform, &s.BaseScore, &s.TotalTransactions, &s.SuccessCount,
		&s.FraudCount, &s.ChargebackCount, &s.FraudRate, &s.ChargebackRate,
		&s.SuccessRate, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanSnapshots(rows *sql.Rows) ([]*Snapshot, error) {
	var out []*Snapshot
	for rows.Next() {
		s := &Snapshot{}
		if err := rows.Scan(&s.ID, &s.Platform, &s.BaseScore, &s.TotalTransactions,
			&s.SuccessCount, &s.FraudCount, &s.ChargebackCount, &s.FraudRate,
			&s.ChargebackRate, &s.SuccessRate, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
