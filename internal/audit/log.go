// Package audit keeps the append-only trail of privacy-relevant operations.
//
// The trail is fail-closed: when a record cannot be persisted the error
// propagates so the triggering operation fails rather than proceed
// unaudited. There is deliberately no update or delete-by-id operation;
// records leave the log only through time-based pruning.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dErrors "privacygate/pkg/domain-errors"
)

// Store persists audit records. Implementations must be safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, record Record) error
	Query(ctx context.Context, filter Filter) ([]Record, error)
	// DeleteOlderThan removes records with Timestamp before cutoff and
	// returns how many were removed. Only the pruner calls this.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Log is the audit service the rest of the engine appends through.
type Log struct {
	store     Store
	retention time.Duration
	logger    *slog.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithLogger sets a structured logger for prune reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// WithRetention overrides the default one-year retention window.
func WithRetention(d time.Duration) Option {
	return func(l *Log) { l.retention = d }
}

// New constructs the audit log service.
func New(store Store, opts ...Option) (*Log, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit store is required")
	}
	l := &Log{
		store:     store,
		retention: 365 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Append persists one audit record, assigning its ID and timestamp when
// unset. A storage failure is returned as CodeAuditWriteFailure so the
// caller fails its own operation closed.
func (l *Log) Append(ctx context.Context, record Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := l.store.Append(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeAuditWriteFailure, "append audit record")
	}
	return nil
}

// Query returns records matching the filter, newest first.
func (l *Log) Query(ctx context.Context, filter Filter) ([]Record, error) {
	records, err := l.store.Query(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "query audit records")
	}
	return records, nil
}

// Prune removes records older than the retention window.
func (l *Log) Prune(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-l.retention)
	removed, err := l.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "prune audit records")
	}
	return removed, nil
}

// RunPruner prunes on the given interval until ctx is cancelled.
func (l *Log) RunPruner(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed, err := l.Prune(ctx)
			if err != nil {
				if l.logger != nil {
					l.logger.ErrorContext(ctx, "audit prune failed", "error", err)
				}
				continue
			}
			if removed > 0 && l.logger != nil {
				l.logger.InfoContext(ctx, "audit records pruned", "removed", removed)
			}
		}
	}
}
