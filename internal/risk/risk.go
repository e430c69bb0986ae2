// Package risk implements real-time transaction risk scoring for AI-agent
// commerce.
//
// Every transaction attempt is checked against the block list, then scored by
// five concurrent signal collectors (customer identity, transaction pattern,
// agent reputation, velocity, temporal/payment). Contributions are additive
// integers capped at 100; the score classifies to low (auto-approve), medium
// (step-up verification), or high (block). The engine fails open: signal
// source failures contribute safe defaults, and an unexpected internal error
// yields a low-risk assessment rather than an error to the caller.
package risk

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Level is the risk tier derived from the numeric score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ErrNotFound is returned when an assessment id does not resolve.
var ErrNotFound = errors.New("assessment not found")

// Customer identifies who the agent is buying for.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Item is one line item of the attempted order.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Totals carries the order amounts.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// Payment describes how the transaction would be settled.
type Payment struct {
	Method        string `json:"method"` // "link" or "direct"
	Currency      string `json:"currency"`
	SaveForFuture bool   `json:"saveForFuture"`
}

// Source describes the agent channel that initiated the transaction.
type Source struct {
	Protocol  string `json:"protocol"`
	Platform  string `json:"platform"`
	InputType string `json:"inputType"`
}

// TransactionContext is the immutable input to one assessment, normalized
// from whichever commerce protocol initiated it.
type TransactionContext struct {
	TransactionID string   `json:"transactionId"`
	MerchantID    string   `json:"merchantId"`
	Customer      Customer `json:"customer"`
	Items         []Item   `json:"items"`
	Totals        Totals   `json:"totals"`
	Payment       Payment  `json:"payment"`
	Source        Source   `json:"source"`
}

// Validate checks the caller contract: a transaction id, a merchant id, and
// at least one customer identifier are required before scoring can begin.
func (tc *TransactionContext) Validate() error {
	if tc.TransactionID == "" {
		return fmt.Errorf("transactionId is required")
	}
	if tc.MerchantID == "" {
		return fmt.Errorf("merchantId is required")
	}
	if tc.Customer.Phone == "" && tc.Customer.Email == "" {
		return fmt.Errorf("at least one customer identifier (phone or email) is required")
	}
	return nil
}

// CustomerSignals are the identity and history observations.
type CustomerSignals struct {
	PhoneValid      bool    `json:"phoneValid"`
	PhoneType       string  `json:"phoneType"`
	EmailProvided   bool    `json:"emailProvided"`
	EmailValid      bool    `json:"emailValid"`
	DisposableEmail bool    `json:"disposableEmail"`
	IsNewCustomer   bool    `json:"isNewCustomer"`
	PreviousOrders  int     `json:"previousOrders"`
	PreviousFraud   bool    `json:"previousFraud"`
	LifetimeValue   float64 `json:"lifetimeValue"`
}

// PatternSignals compare the amount against the merchant's history.
type PatternSignals struct {
	MerchantKnown    bool    `json:"merchantKnown"`
	MerchantAvgOrder float64 `json:"merchantAvgOrder"`
	AmountRatio      float64 `json:"amountRatio"`
	UnusualAmount    bool    `json:"unusualAmount"`
}

// ReputationSignals carry the agent platform's standing.
type ReputationSignals struct {
	Platform          string  `json:"platform"`
	KnownPlatform     bool    `json:"knownPlatform"`
	BaseScore         int     `json:"baseScore"`
	FraudRate         float64 `json:"fraudRate"`
	ChargebackRate    float64 `json:"chargebackRate"`
	TotalTransactions int64   `json:"totalTransactions"`
}

// VelocitySignals count recent activity for this identity.
type VelocitySignals struct {
	TxLastHour           int `json:"txLastHour"`
	TxLast24Hours        int `json:"txLast24Hours"`
	FailedLastHour       int `json:"failedLastHour"`
	DistinctMerchants24H int `json:"distinctMerchants24h"`
}

// TemporalSignals are derived from wall-clock time and the payment method.
type TemporalSignals struct {
	Hour          int    `json:"hour"`
	LateNight     bool   `json:"lateNight"`
	Weekend       bool   `json:"weekend"`
	PaymentMethod string `json:"paymentMethod"`
	IsLink        bool   `json:"isLink"`
	IsDirect      bool   `json:"isDirect"`
	Currency      string `json:"currency"`
	SaveForFuture bool   `json:"saveForFuture"`
}

// ListSignals record block/allow list matches. An allow-list match is
// recorded but does not alter the score.
type ListSignals struct {
	BlocklistHit bool   `json:"blocklistHit"`
	BlockReason  string `json:"blockReason,omitempty"`
	AllowlistHit bool   `json:"allowlistHit"`
}

// Signals is the full structured snapshot persisted with each assessment.
type Signals struct {
	Customer   CustomerSignals   `json:"customer"`
	Pattern    PatternSignals    `json:"pattern"`
	Reputation ReputationSignals `json:"reputation"`
	Velocity   VelocitySignals   `json:"velocity"`
	Temporal   TemporalSignals   `json:"temporal"`
	Lists      ListSignals       `json:"lists"`
}

// Assessment is the engine's verdict on one transaction. Created exactly once
// at assessment time; only the review fields may change afterwards.
type Assessment struct {
	ID                   string     `json:"id"`
	TransactionID        string     `json:"transactionId"`
	CustomerPhone        string     `json:"customerPhone,omitempty"`
	CustomerEmail        string     `json:"customerEmail,omitempty"`
	MerchantID           string     `json:"merchantId"`
	AgentPlatform        string     `json:"agentPlatform,omitempty"`
	RiskScore            int        `json:"riskScore"`
	RiskLevel            Level      `json:"riskLevel"`
	Signals              Signals    `json:"signals"`
	Reasons              []string   `json:"reasons"`
	IsFraud              bool       `json:"isFraud"`
	RequiresVerification bool       `json:"requiresVerification"`
	Reviewed             bool       `json:"reviewed"`
	ReviewedBy           string     `json:"reviewedBy,omitempty"`
	ReviewedAt           *time.Time `json:"reviewedAt,omitempty"`
	ActionTaken          string     `json:"actionTaken,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// Stats aggregates assessments for dashboards over a timeframe.
type Stats struct {
	Since         time.Time `json:"since"`
	Total         int       `json:"total"`
	Low           int       `json:"low"`
	Medium        int       `json:"medium"`
	High          int       `json:"high"`
	AvgScore      float64   `json:"avgScore"`
	PendingReview int       `json:"pendingReview"`
}

// Store persists risk assessments for the audit trail and review workflow.
type Store interface {
	Record(ctx context.Context, a *Assessment) error
	Get(ctx context.Context, id string) (*Assessment, error)
	// CountFraudByCustomer counts prior fraud-flagged assessments matching
	// either identifier.
	CountFraudByCustomer(ctx context.Context, phone, email string) (int, error)
	// ListHighRiskPending returns unreviewed high-risk assessments, newest first.
	ListHighRiskPending(ctx context.Context, limit int) ([]*Assessment, error)
	// Review sets the review fields on one assessment. Returns ErrNotFound
	// when the id does not resolve.
	Review(ctx context.Context, id, reviewedBy, action string) (*Assessment, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}
