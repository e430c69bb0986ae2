package risk

import (
	"context"
	"strings"
	"time"

	"github.com/agentgate/agentgate/internal/history"
	"github.com/agentgate/agentgate/internal/identity"
	"github.com/agentgate/agentgate/internal/reputation"
)

// Collector names, used for failure metrics and logs.
const (
	CollectorCustomer   = "customer"
	CollectorPattern    = "pattern"
	CollectorReputation = "reputation"
	CollectorVelocity   = "velocity"
	CollectorTemporal   = "temporal"
)

// Unusual-amount bounds: the transaction amount relative to the merchant's
// completed-order average.
const (
	amountRatioLow  = 0.1
	amountRatioHigh = 3.0
)

// CustomerCollector validates the customer's identifiers and looks up their
// order and fraud history.
type CustomerCollector struct {
	history     history.Reader
	assessments Store
	phones      identity.PhoneClassifier
}

// NewCustomerCollector creates a customer signal collector.
func NewCustomerCollector(hist history.Reader, assessments Store, phones identity.PhoneClassifier) *CustomerCollector {
	return &CustomerCollector{history: hist, assessments: assessments, phones: phones}
}

// Collect returns customer signals. Identifier validation is pure and always
// present; on a store failure the history-derived fields keep safe defaults
// and the error is returned for logging.
func (c *CustomerCollector) Collect(ctx context.Context, phone, email string) (CustomerSignals, error) {
	s := CustomerSignals{
		PhoneValid:    identity.IsValidE164(phone),
		PhoneType:     string(c.phones.Classify(phone)),
		EmailProvided: email != "",
	}
	if s.EmailProvided {
		s.EmailValid = identity.IsValidEmail(email)
		s.DisposableEmail = identity.IsDisposableEmail(email)
	}

	hist, err := c.history.CustomerHistory(ctx, phone, email)
	if err != nil {
		return s, err
	}
	s.PreviousOrders = hist.PreviousOrders
	s.LifetimeValue = hist.LifetimeValue
	s.IsNewCustomer = hist.PreviousOrders == 0

	frauds, err := c.assessments.CountFraudByCustomer(ctx, phone, email)
	if err != nil {
		return s, err
	}
	s.PreviousFraud = frauds > 0
	return s, nil
}

// PatternCollector compares the transaction amount to the merchant's
// completed-order average.
type PatternCollector struct {
	history history.Reader
}

// NewPatternCollector creates a transaction-pattern signal collector.
func NewPatternCollector(hist history.Reader) *PatternCollector {
	return &PatternCollector{history: hist}
}

func (c *PatternCollector) Collect(ctx context.Context, tc *TransactionContext) (PatternSignals, error) {
	var s PatternSignals

	stats, err := c.history.MerchantStats(ctx, tc.MerchantID)
	if err != nil {
		return s, err
	}
	s.MerchantKnown = stats.Known
	s.MerchantAvgOrder = stats.AvgOrderValue

	if stats.Known && stats.AvgOrderValue > 0 {
		s.AmountRatio = tc.Totals.Total / stats.AvgOrderValue
		s.UnusualAmount = s.AmountRatio < amountRatioLow || s.AmountRatio > amountRatioHigh
	}
	return s, nil
}

// ReputationCollector maps the agent platform to its base score and live
// outcome rates.
type ReputationCollector struct {
	table    *reputation.BaseTable
	counters reputation.CounterStore
}

// NewReputationCollector creates an agent-reputation signal collector.
func NewReputationCollector(table *reputation.BaseTable, counters reputation.CounterStore) *ReputationCollector {
	return &ReputationCollector{table: table, counters: counters}
}

func (c *ReputationCollector) Collect(ctx context.Context, tc *TransactionContext) (ReputationSignals, error) {
	platform := strings.ToLower(strings.TrimSpace(tc.Source.Platform))
	s := ReputationSignals{
		Platform:      platform,
		KnownPlatform: c.table.Known(platform),
		BaseScore:     c.table.Score(platform),
	}

	counters, err := c.counters.Get(ctx, platform)
	if err != nil {
		return s, err
	}
	if counters != nil {
		s.FraudRate = counters.FraudRate()
		s.ChargebackRate = counters.ChargebackRate()
		s.TotalTransactions = counters.TotalTransactions
	}
	return s, nil
}

// VelocityCollector counts recent activity for this identity from a single
// 24-hour window query, filtered in memory against rolling clock boundaries.
type VelocityCollector struct {
	history history.Reader
	now     func() time.Time
}

// NewVelocityCollector creates a velocity signal collector.
func NewVelocityCollector(hist history.Reader) *VelocityCollector {
	return &VelocityCollector{history: hist, now: time.Now}
}

func (c *VelocityCollector) Collect(ctx context.Context, phone, email string) (VelocitySignals, error) {
	var s VelocitySignals

	now := c.now()
	txs, err := c.history.ListByIdentity(ctx, phone, email, now.Add(-24*time.Hour))
	if err != nil {
		return s, err
	}

	oneHourAgo := now.Add(-time.Hour)
	merchants := make(map[string]struct{})
	for _, tx := range txs {
		s.TxLast24Hours++
		merchants[tx.MerchantID] = struct{}{}
		if tx.CreatedAt.After(oneHourAgo) {
			s.TxLastHour++
			if tx.Status == history.StatusFailed {
				s.FailedLastHour++
			}
		}
	}
	s.DistinctMerchants24H = len(merchants)
	return s, nil
}

// TemporalCollector derives time-of-day and payment-method signals. No
// storage access; it cannot fail.
type TemporalCollector struct {
	now func() time.Time
}

// NewTemporalCollector creates a temporal/payment signal collector.
func NewTemporalCollector() *TemporalCollector {
	return &TemporalCollector{now: time.Now}
}

func (c *TemporalCollector) Collect(tc *TransactionContext) TemporalSignals {
	now := c.now()
	hour := now.Hour()
	wd := now.Weekday()

	return TemporalSignals{
		Hour:          hour,
		LateNight:     hour >= 1 && hour < 6,
		Weekend:       wd == time.Saturday || wd == time.Sunday,
		PaymentMethod: tc.Payment.Method,
		IsLink:        tc.Payment.Method == "link",
		IsDirect:      tc.Payment.Method == "direct",
		Currency:      tc.Payment.Currency,
		SaveForFuture: tc.Payment.SaveForFuture,
	}
}
