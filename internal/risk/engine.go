package risk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentgate/agentgate/internal/identity"
	"github.com/agentgate/agentgate/internal/idgen"
	"github.com/agentgate/agentgate/internal/lists"
	"github.com/agentgate/agentgate/internal/metrics"
	"github.com/agentgate/agentgate/internal/traces"
)

// DefaultAssessTimeout bounds the signal collection phase.
const DefaultAssessTimeout = 2 * time.Second

// Engine runs the assessment pipeline: validate, list guard, concurrent
// collectors, compose, classify, audit.
type Engine struct {
	store Store
	guard *lists.Guard

	customer   *CustomerCollector
	pattern    *PatternCollector
	reputation *ReputationCollector
	velocity   *VelocityCollector
	temporal   *TemporalCollector

	verifyThreshold int
	blockThreshold  int
	timeout         time.Duration
	logger          *slog.Logger
}

// EngineConfig carries the engine's collaborators and policy knobs.
type EngineConfig struct {
	Store      Store
	Guard      *lists.Guard
	Customer   *CustomerCollector
	Pattern    *PatternCollector
	Reputation *ReputationCollector
	Velocity   *VelocityCollector
	Temporal   *TemporalCollector

	VerifyThreshold int
	BlockThreshold  int
	AssessTimeout   time.Duration
	Logger          *slog.Logger
}

// NewEngine creates a risk scoring engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.VerifyThreshold == 0 {
		cfg.VerifyThreshold = 50
	}
	if cfg.BlockThreshold == 0 {
		cfg.BlockThreshold = 80
	}
	if cfg.AssessTimeout == 0 {
		cfg.AssessTimeout = DefaultAssessTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:           cfg.Store,
		guard:           cfg.Guard,
		customer:        cfg.Customer,
		pattern:         cfg.Pattern,
		reputation:      cfg.Reputation,
		velocity:        cfg.Velocity,
		temporal:        cfg.Temporal,
		verifyThreshold: cfg.VerifyThreshold,
		blockThreshold:  cfg.BlockThreshold,
		timeout:         cfg.AssessTimeout,
		logger:          cfg.Logger,
	}
}

// Assess evaluates one transaction and returns its assessment. A malformed
// context fails loudly; everything past validation fails open.
func (e *Engine) Assess(ctx context.Context, tc *TransactionContext) (*Assessment, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return e.assess(ctx, tc), nil
}

// assess runs the pipeline under a recover so that an unexpected internal
// error still yields a low-risk, non-blocking assessment.
func (e *Engine) assess(ctx context.Context, tc *TransactionContext) (a *Assessment) {
	start := time.Now()

	phone := identity.NormalizePhone(tc.Customer.Phone)
	email := strings.ToLower(strings.TrimSpace(tc.Customer.Email))

	defer func() {
		if r := recover(); r != nil {
			metrics.FailOpenTotal.Inc()
			e.logger.Error("risk assessment recovered, failing open",
				"transaction_id", tc.TransactionID, "panic", r)
			a = e.failOpen(ctx, tc, phone, email,
				fmt.Sprintf("risk scoring unavailable (%v), defaulting to low risk", r))
		}
		metrics.AssessmentDuration.Observe(time.Since(start).Seconds())
		metrics.AssessmentsTotal.WithLabelValues(string(a.RiskLevel)).Inc()
	}()

	ctx, span := traces.StartSpan(ctx, "risk.assess",
		traces.TransactionID(tc.TransactionID),
		traces.MerchantID(tc.MerchantID),
		traces.AgentPlatform(tc.Source.Platform),
	)
	defer func() {
		if a != nil {
			span.SetAttributes(traces.RiskScore(a.RiskScore), traces.RiskLevel(string(a.RiskLevel)))
		}
		span.End()
	}()

	// Block-list hit short-circuits scoring entirely.
	if entry := e.guard.Blocked(ctx, phone, email); entry != nil {
		metrics.BlocklistHitsTotal.Inc()
		a = e.newAssessment(tc, phone, email)
		a.RiskScore = 100
		a.RiskLevel = LevelHigh
		a.IsFraud = true
		a.Signals.Lists = ListSignals{BlocklistHit: true, BlockReason: entry.Reason}
		a.Reasons = []string{blockReason(entry)}
		e.audit(ctx, a)
		return a
	}

	signals := e.collect(ctx, tc, phone, email)
	if entry := e.guard.Allowed(ctx, phone, email); entry != nil {
		// Recorded for review visibility; does not alter the score.
		signals.Lists.AllowlistHit = true
	}

	score, reasons := Compose(signals)
	level := Classify(score, e.verifyThreshold, e.blockThreshold)

	a = e.newAssessment(tc, phone, email)
	a.RiskScore = score
	a.RiskLevel = level
	a.Signals = *signals
	a.Reasons = reasons
	a.IsFraud = score >= e.blockThreshold
	a.RequiresVerification = score >= e.verifyThreshold && score < e.blockThreshold

	e.audit(ctx, a)
	return a
}

// collect runs the five collectors concurrently under the assessment
// deadline. A collector failure contributes safe defaults and is logged,
// never propagated.
func (e *Engine) collect(ctx context.Context, tc *TransactionContext, phone, email string) *Signals {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	signals := &Signals{}
	g, ctx := errgroup.WithContext(ctx)

	// Each collector runs under its own recover: a failing or panicking
	// collector contributes defaults, never an assessment failure.
	run := func(name string, fn func(ctx context.Context) error) {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					e.noteFailure(name, tc.TransactionID, fmt.Errorf("panic: %v", r))
				}
			}()
			if err := fn(ctx); err != nil {
				e.noteFailure(name, tc.TransactionID, err)
			}
			return nil
		})
	}

	run(CollectorCustomer, func(ctx context.Context) error {
		s, err := e.customer.Collect(ctx, phone, email)
		signals.Customer = s
		return err
	})
	run(CollectorPattern, func(ctx context.Context) error {
		s, err := e.pattern.Collect(ctx, tc)
		signals.Pattern = s
		return err
	})
	run(CollectorReputation, func(ctx context.Context) error {
		s, err := e.reputation.Collect(ctx, tc)
		signals.Reputation = s
		return err
	})
	run(CollectorVelocity, func(ctx context.Context) error {
		s, err := e.velocity.Collect(ctx, phone, email)
		signals.Velocity = s
		return err
	})
	run(CollectorTemporal, func(ctx context.Context) error {
		signals.Temporal = e.temporal.Collect(tc)
		return nil
	})

	_ = g.Wait()
	return signals
}

func (e *Engine) noteFailure(collector, transactionID string, err error) {
	if err == nil {
		return
	}
	metrics.CollectorFailuresTotal.WithLabelValues(collector).Inc()
	e.logger.Warn("signal collector failed, using defaults",
		"collector", collector, "transaction_id", transactionID, "error", err)
}

// audit persists the assessment synchronously. A write failure is an
// operational alert, not an assessment failure.
func (e *Engine) audit(ctx context.Context, a *Assessment) {
	if err := e.store.Record(ctx, a); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		e.logger.Error("failed to persist risk assessment",
			"assessment_id", a.ID, "transaction_id", a.TransactionID, "error", err)
	}
}

// failOpen builds the low-risk assessment returned when scoring itself
// breaks. Availability wins over strict enforcement.
func (e *Engine) failOpen(ctx context.Context, tc *TransactionContext, phone, email, reason string) *Assessment {
	a := e.newAssessment(tc, phone, email)
	a.RiskScore = 0
	a.RiskLevel = LevelLow
	a.Reasons = []string{reason}
	e.audit(ctx, a)
	return a
}

func (e *Engine) newAssessment(tc *TransactionContext, phone, email string) *Assessment {
	return &Assessment{
		ID:            idgen.WithPrefix("risk_"),
		TransactionID: tc.TransactionID,
		CustomerPhone: phone,
		CustomerEmail: email,
		MerchantID:    tc.MerchantID,
		AgentPlatform: strings.ToLower(strings.TrimSpace(tc.Source.Platform)),
		CreatedAt:     time.Now(),
	}
}

func blockReason(entry *lists.Entry) string {
	if entry.Reason == "" {
		return fmt.Sprintf("customer %s is on the block list", entry.Type)
	}
	return fmt.Sprintf("customer %s is on the block list: %s", entry.Type, entry.Reason)
}
