// Package quota provides the rate-limiting gate consulted before any
// session resources are allocated. The policy engine itself is an
// external collaborator; this package defines its contract and a local
// sliding-window implementation.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appforge-ai/appforge/internal/apperr"
)

// Policy names a limit to enforce.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// SessionCreationPolicy returns the bootstrap policy for the given
// per-hour limit.
func SessionCreationPolicy(sessionsPerHour int) Policy {
	return Policy{Name: "session_creation", Limit: sessionsPerHour, Window: time.Hour}
}

// Gate is the pass/fail quota contract. A rejection is always a
// *apperr.QuotaExceededError carrying a human-readable reason.
type Gate interface {
	Enforce(ctx context.Context, policy Policy, userID string) error
}

// MemoryGate enforces policies with in-memory sliding windows, keyed by
// policy name and user.
type MemoryGate struct {
	mu      sync.Mutex
	history map[string][]time.Time
	now     func() time.Time
}

// NewMemoryGate creates a new in-memory quota gate.
func NewMemoryGate() *MemoryGate {
	return &MemoryGate{
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Enforce records one use and rejects when the window is full. Limits
// of zero or below disable the policy.
func (g *MemoryGate) Enforce(ctx context.Context, policy Policy, userID string) error {
	if policy.Limit <= 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := policy.Name + "/" + userID
	now := g.now()
	cutoff := now.Add(-policy.Window)

	kept := g.history[key][:0]
	for _, ts := range g.history[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= policy.Limit {
		g.history[key] = kept
		return &apperr.QuotaExceededError{
			Reason: fmt.Sprintf("limit of %d %s per %s reached", policy.Limit, policy.Name, policy.Window),
		}
	}

	g.history[key] = append(kept, now)
	return nil
}
