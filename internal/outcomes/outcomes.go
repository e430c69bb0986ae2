// Package outcomes ingests settlement results from the payment layer. Each
// outcome event updates the transaction's history row (creating it when the
// engine never saw the transaction) and drives the platform reputation
// counters.
package outcomes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentgate/agentgate/internal/history"
	"github.com/agentgate/agentgate/internal/identity"
	"github.com/agentgate/agentgate/internal/metrics"
	"github.com/agentgate/agentgate/internal/reputation"
)

// ErrInvalidOutcome is returned for outcomes outside the known set.
var ErrInvalidOutcome = errors.New("invalid outcome")

// Event is one settlement outcome reported for a transaction.
type Event struct {
	TransactionID string             `json:"transactionId"`
	MerchantID    string             `json:"merchantId"`
	CustomerPhone string             `json:"customerPhone"`
	CustomerEmail string             `json:"customerEmail"`
	AgentPlatform string             `json:"agentPlatform"`
	Amount        float64            `json:"amount"`
	Currency      string             `json:"currency"`
	Outcome       reputation.Outcome `json:"outcome"`
}

// Service applies outcome events to history and reputation.
type Service struct {
	history history.Store
	updater *reputation.Updater
	logger  *slog.Logger
}

// NewService creates an outcome intake service.
func NewService(hist history.Store, updater *reputation.Updater, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{history: hist, updater: updater, logger: logger}
}

// Apply records one outcome. The history row is updated in place when the
// transaction is known, created otherwise; the reputation increment is
// best-effort and never blocks the history write.
func (s *Service) Apply(ctx context.Context, ev *Event) error {
	if ev.TransactionID == "" {
		return fmt.Errorf("transactionId is required")
	}
	status := history.Status(ev.Outcome)
	if !history.ValidStatus(status) || status == history.StatusPending {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, ev.Outcome)
	}

	if err := s.history.SetStatus(ctx, ev.TransactionID, status); err != nil {
		// Transaction unknown to us: record it so future velocity and
		// customer-history signals see it.
		tx := &history.Transaction{
			ID:            ev.TransactionID,
			MerchantID:    ev.MerchantID,
			CustomerPhone: identity.NormalizePhone(ev.CustomerPhone),
			CustomerEmail: strings.ToLower(strings.TrimSpace(ev.CustomerEmail)),
			AgentPlatform: strings.ToLower(strings.TrimSpace(ev.AgentPlatform)),
			Amount:        ev.Amount,
			Currency:      ev.Currency,
			Status:        status,
		}
		if err := s.history.Record(ctx, tx); err != nil {
			return fmt.Errorf("failed to record outcome transaction: %w", err)
		}
	}

	if err := s.updater.ApplyOutcome(ctx, ev.AgentPlatform, ev.Outcome); err != nil {
		s.logger.Error("failed to apply reputation outcome",
			"transaction_id", ev.TransactionID, "platform", ev.AgentPlatform, "error", err)
	} else {
		metrics.OutcomesTotal.WithLabelValues(string(ev.Outcome)).Inc()
	}
	return nil
}
