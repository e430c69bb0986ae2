// Package history stores the transaction records that risk signal collectors
// read: per-customer order history, merchant order statistics, and the
// time-bounded identity windows behind velocity signals.
package history

import (
	"context"
	"time"
)

// Status is the settlement state of a recorded transaction.
type Status string

const (
	StatusPending    Status = "pending"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusChargeback Status = "chargeback"
	StatusFraud      Status = "fraud"
)

// ValidStatus reports whether s is a known settlement status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusChargeback, StatusFraud:
		return true
	}
	return false
}

// Transaction is one recorded commerce transaction attempt.
type Transaction struct {
	ID            string    `json:"id"`
	MerchantID    string    `json:"merchantId"`
	CustomerPhone string    `json:"customerPhone,omitempty"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	AgentPlatform string    `json:"agentPlatform,omitempty"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Merchant is a known merchant.
type Merchant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CustomerHistory summarizes a customer's prior completed orders.
type CustomerHistory struct {
	PreviousOrders int       `json:"previousOrders"`
	LifetimeValue  float64   `json:"lifetimeValue"`
	FirstSeen      time.Time `json:"firstSeen,omitzero"`
}

// MerchantStats summarizes a merchant's completed-order profile.
type MerchantStats struct {
	Known           bool    `json:"known"`
	CompletedOrders int     `json:"completedOrders"`
	AvgOrderValue   float64 `json:"avgOrderValue"`
}

// Reader is the read surface consumed by signal collectors.
type Reader interface {
	// CustomerHistory aggregates completed orders matching either identifier.
	CustomerHistory(ctx context.Context, phone, email string) (*CustomerHistory, error)
	// MerchantStats returns completed-order statistics for a merchant.
	// Known is false when the merchant id does not resolve.
	MerchantStats(ctx context.Context, merchantID string) (*MerchantStats, error)
	// ListByIdentity returns transactions matching either identifier created
	// at or after since, newest first.
	ListByIdentity(ctx context.Context, phone, email string, since time.Time) ([]*Transaction, error)
}

// Store is the full persistence surface for transaction history.
type Store interface {
	Reader
	Record(ctx context.Context, tx *Transaction) error
	SetStatus(ctx context.Context, id string, status Status) error
	AddMerchant(ctx context.Context, m *Merchant) error
}
