// Package events defines the outbound notifications collaborators observe.
// Emission is best-effort: a failed publish is logged, never allowed to fail
// the privacy operation that triggered it.
package events

import (
	"context"
	"time"
)

// Type names an outbound event.
type Type string

const (
	// TypeBudgetLow fires when a grant leaves a data source with less than
	// 10% of its allowance.
	TypeBudgetLow Type = "budget_low"
	// TypePolicyViolation fires on rejected operations with a policy cause
	// (mismatched technique, over-suppression).
	TypePolicyViolation Type = "policy_violation"
)

// Event is emitted from domain logic. Keep it transport-agnostic so sinks
// can fan out.
type Event struct {
	Type         Type      `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	DataSourceID string    `json:"data_source_id,omitempty"`
	Remaining    float64   `json:"remaining,omitempty"`
	Allowance    float64   `json:"allowance,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	Details      string    `json:"details,omitempty"`
}

// Publisher emits events for external collaborators.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}
