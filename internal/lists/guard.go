package lists

import (
	"context"
	"log/slog"
)

// Guard answers the pre-scoring list checks. Lookup failures are treated as
// "no match" (fail-open): availability is preferred over strict enforcement,
// and the failure is logged rather than propagated.
type Guard struct {
	store  Store
	logger *slog.Logger
}

// NewGuard creates a list guard over the given store.
func NewGuard(store Store, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{store: store, logger: logger}
}

// Blocked returns the matching block-list entry for either identifier, or
// nil when neither matches. Never returns an error.
func (g *Guard) Blocked(ctx context.Context, phone, email string) *Entry {
	return g.match(ctx, KindBlock, phone, email)
}

// Allowed returns the matching allow-list entry for either identifier, or
// nil. An allow-list match is recorded in signals but does not alter the
// score.
func (g *Guard) Allowed(ctx context.Context, phone, email string) *Entry {
	return g.match(ctx, KindAllow, phone, email)
}

func (g *Guard) match(ctx context.Context, list Kind, phone, email string) *Entry {
	if phone != "" {
		e, err := g.store.Find(ctx, list, TypePhone, phone)
		if err != nil {
			g.logger.Warn("list lookup failed, treating as no match",
				"list", list, "type", TypePhone, "error", err)
		} else if e != nil {
			return e
		}
	}
	if email != "" {
		e, err := g.store.Find(ctx, list, TypeEmail, email)
		if err != nil {
			g.logger.Warn("list lookup failed, treating as no match",
				"list", list, "type", TypeEmail, "error", err)
		} else if e != nil {
			return e
		}
	}
	return nil
}
