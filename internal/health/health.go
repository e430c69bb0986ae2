// Package health provides a registry of named subsystem health checks.
package health

import (
	"context"
	"sync"
	"time"
)

// checkTimeout bounds each individual subsystem check.
const checkTimeout = 2 * time.Second

// Check probes one subsystem; a non-nil error marks it unhealthy.
type Check func(ctx context.Context) error

// Status is the result of one subsystem check.
type Status struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Report aggregates all subsystem statuses.
type Report struct {
	Healthy    bool              `json:"healthy"`
	Subsystems map[string]Status `json:"subsystems"`
}

// Registry holds named health checks and runs them on demand.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]Check
	order  []string
}

// NewRegistry creates a new health check registry.
func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]Check)}
}

// Register adds a named health check. Re-registering a name replaces it.
func (r *Registry) Register(name string, check Check) {
	r.mu.Lock()
	if _, exists := r.checks[name]; !exists {
		r.order = append(r.order, name)
	}
	r.checks[name] = check
	r.mu.Unlock()
}

// Run executes all registered checks and returns an aggregate report.
// Each check runs under its own bounded context.
func (r *Registry) Run(ctx context.Context) Report {
	r.mu.RLock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	checks := make(map[string]Check, len(r.checks))
	for name, check := range r.checks {
		checks[name] = check
	}
	r.mu.RUnlock()

	report := Report{Healthy: true, Subsystems: make(map[string]Status, len(names))}
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checks[name](cctx)
		cancel()

		if err != nil {
			report.Healthy = false
			report.Subsystems[name] = Status{Healthy: false, Error: err.Error()}
			continue
		}
		report.Subsystems[name] = Status{Healthy: true}
	}
	return report
}
