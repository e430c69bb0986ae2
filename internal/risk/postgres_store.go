package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore persists risk assessments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the risk_assessments table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_assessments (
			id                    VARCHAR(64) PRIMARY KEY,
			transaction_id        VARCHAR(64) NOT NULL,
			customer_phone        VARCHAR(32) NOT NULL DEFAULT '',
			customer_email        VARCHAR(255) NOT NULL DEFAULT '',
			merchant_id           VARCHAR(64) NOT NULL,
			agent_platform        VARCHAR(64) NOT NULL DEFAULT '',
			risk_score            INT NOT NULL CHECK (risk_score >= 0 AND risk_score <= 100),
			risk_level            VARCHAR(8) NOT NULL CHECK (risk_level IN ('low', 'medium', 'high')),
			signals               JSONB NOT NULL DEFAULT '{}',
			reasons               JSONB NOT NULL DEFAULT '[]',
			is_fraud              BOOLEAN NOT NULL DEFAULT FALSE,
			requires_verification BOOLEAN NOT NULL DEFAULT FALSE,
			reviewed              BOOLEAN NOT NULL DEFAULT FALSE,
			reviewed_by           VARCHAR(64) NOT NULL DEFAULT '',
			reviewed_at           TIMESTAMPTZ,
			action_taken          VARCHAR(64) NOT NULL DEFAULT '',
			created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_txn
			ON risk_assessments (transaction_id);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_phone
			ON risk_assessments (customer_phone, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_email
			ON risk_assessments (customer_email, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_pending
			ON risk_assessments (created_at DESC)
			WHERE risk_level = 'high' AND reviewed = FALSE;
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, a *Assessment) error {
	signalsJSON, err := json.Marshal(a.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %w", err)
	}
	reasonsJSON, err := json.Marshal(a.Reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments
			(id, transaction_id, customer_phone, customer_email, merchant_id,
			 agent_platform, risk_score, risk_level, signals, reasons,
			 is_fraud, requires_verification, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, a.ID, a.TransactionID, a.CustomerPhone, a.CustomerEmail, a.MerchantID,
		a.AgentPlatform, a.RiskScore, string(a.RiskLevel), signalsJSON, reasonsJSON,
		a.IsFraud, a.RequiresVerification, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record risk assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Assessment, error) {
	row := s.db.QueryRowContext(ctx, selectAssessment+" WHERE id = $1", id)
	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk assessment: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) CountFraudByCustomer(ctx context.Context, phone, email string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM risk_assessments
		WHERE is_fraud = TRUE
		  AND (($1 <> '' AND customer_phone = $1) OR ($2 <> '' AND customer_email = $2))
	`, phone, email).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fraud assessments: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListHighRiskPending(ctx context.Context, limit int) ([]*Assessment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, selectAssessment+`
		WHERE risk_level = 'high' AND reviewed = FALSE
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Review(ctx context.Context, id, reviewedBy, action string) (*Assessment, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE risk_assessments
		SET reviewed = TRUE, reviewed_by = $2, reviewed_at = NOW(), action_taken = $3
		WHERE id = $1
	`, id, reviewedBy, action)
	if err != nil {
		return nil, fmt.Errorf("failed to review assessment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	stats := &Stats{Since: since}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			   COUNT(*) FILTER (WHERE risk_level = 'low'),
			   COUNT(*) FILTER (WHERE risk_level = 'medium'),
			   COUNT(*) FILTER (WHERE risk_level = 'high'),
			   COALESCE(AVG(risk_score), 0),
			   COUNT(*) FILTER (WHERE risk_level = 'high' AND reviewed = FALSE)
		FROM risk_assessments
		WHERE created_at >= $1
	`, since).Scan(&stats.Total, &stats.Low, &stats.Medium, &stats.High,
		&stats.AvgScore, &stats.PendingReview)
	if err != nil {
		return nil, fmt.Errorf("failed to compute assessment stats: %w", err)
	}
	return stats, nil
}

const selectAssessment = `
	SELECT id, transaction_id, customer_phone, customer_email, merchant_id,
		   agent_platform, risk_score, risk_level, signals, reasons,
		   is_fraud, requires_verification, reviewed, reviewed_by, reviewed_at,
		   action_taken, created_at
	FROM risk_assessments`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (*Assessment, error) {
	a := &Assessment{}
	var level string
	var signalsJSON, reasonsJSON []byte
	var reviewedAt sql.NullTime

	err := row.Scan(&a.ID, &a.TransactionID, &a.CustomerPhone, &a.CustomerEmail,
		&a.MerchantID, &a.AgentPlatform, &a.RiskScore, &level, &signalsJSON,
		&reasonsJSON, &a.IsFraud, &a.RequiresVerification, &a.Reviewed,
		&a.ReviewedBy, &reviewedAt, &a.ActionTaken, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.RiskLevel = Level(level)
	if reviewedAt.Valid {
		a.ReviewedAt = &reviewedAt.Time
	}
	if err := json.Unmarshal(signalsJSON, &a.Signals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signals: %w", err)
	}
	if err := json.Unmarshal(reasonsJSON, &a.Reasons); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reasons: %w", err)
	}
	return a, nil
}
