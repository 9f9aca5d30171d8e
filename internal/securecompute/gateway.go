package securecompute

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"privacygate/internal/audit"
	"privacygate/internal/policy"
	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

// dataset is one encrypted record set held by the gateway. Ciphertexts are
// only touched under the gateway mutex; accessCount is atomic so Compute on
// distinct datasets never serializes on the write lock.
type dataset struct {
	id          domain.DatasetID
	category    domain.DataCategory
	schemeID    domain.SchemeID
	keyID       uint32
	ciphertexts [][]byte
	createdAt   time.Time
	expiresAt   time.Time
	accessCount atomic.Int64
}

// DatasetInfo is the caller-visible view of a stored dataset. It never
// exposes ciphertexts or key material.
type DatasetInfo struct {
	ID          domain.DatasetID
	Category    domain.DataCategory
	SchemeID    domain.SchemeID
	KeyID       uint32
	Records     int
	CreatedAt   time.Time
	ExpiresAt   time.Time
	AccessCount int64
}

// Gateway encrypts record sets, evaluates homomorphic operations on them,
// and gates decryption behind operator capability tokens. Every privileged
// operation is audited; a failed audit write fails the operation.
type Gateway struct {
	scheme   Scheme
	policies *policy.Registry
	auditLog *audit.Log
	caps     *CapabilityIssuer

	mu        sync.RWMutex
	datasets  map[domain.DatasetID]*dataset
	active    *KeyPair
	retired   *KeyPair
	retiredAt time.Time

	grace  time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets a structured logger for sweep and rotation reporting.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = logger }
}

// WithKeyGrace overrides how long a retired key keeps decrypting after
// rotation.
func WithKeyGrace(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.grace = d }
}

// WithGatewayClock overrides the time source. Tests only.
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// NewGateway constructs the gateway and mints the first key generation for
// the given scheme.
func NewGateway(scheme Scheme, policies *policy.Registry, auditLog *audit.Log, caps *CapabilityIssuer, opts ...GatewayOption) (*Gateway, error) {
	if scheme == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "encryption scheme is required")
	}
	if policies == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "policy registry is required")
	}
	if auditLog == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit log is required")
	}
	if caps == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "capability issuer is required")
	}

	g := &Gateway{
		scheme:   scheme,
		policies: policies,
		auditLog: auditLog,
		caps:     caps,
		datasets: make(map[domain.DatasetID]*dataset),
		grace:    24 * time.Hour,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	key, err := scheme.GenerateKeys(1)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSchemeUnavailable, "generate initial keys")
	}
	g.active = key
	return g, nil
}

// Encrypt stores the values as a new encrypted dataset. The category's
// policy must require the encryption technique; anything else is a policy
// mismatch, audited as a rejection.
func (g *Gateway) Encrypt(ctx context.Context, category domain.DataCategory, values []float64) (domain.DatasetID, error) {
	pol, err := g.policies.Lookup(category)
	if err != nil {
		return domain.DatasetID{}, err
	}
	if !pol.Requires(policy.TechniqueEncryption) {
		rejErr := dErrors.Newf(dErrors.CodePolicyMismatch, "policy for category %q does not require encryption", category)
		if auditErr := g.auditLog.Append(ctx, audit.Record{
			Kind:     audit.KindEncryptionRejected,
			Ref:      string(category),
			Decision: audit.DecisionRejected,
			Reason:   "technique not required by policy",
		}); auditErr != nil {
			return domain.DatasetID{}, auditErr
		}
		return domain.DatasetID{}, rejErr
	}
	if len(values) == 0 {
		return domain.DatasetID{}, dErrors.New(dErrors.CodeInvalidInput, "cannot encrypt an empty record set")
	}

	g.mu.Lock()
	key := g.active
	g.mu.Unlock()

	ciphertexts, err := g.scheme.Encrypt(key, values)
	if err != nil {
		return domain.DatasetID{}, dErrors.Wrap(err, dErrors.CodeSchemeUnavailable, "encrypt dataset")
	}

	now := g.now()
	ds := &dataset{
		id:          domain.NewDatasetID(),
		category:    category,
		schemeID:    g.scheme.ID(),
		keyID:       key.KeyID,
		ciphertexts: ciphertexts,
		createdAt:   now,
		expiresAt:   now.Add(pol.Retention),
	}

	g.mu.Lock()
	g.datasets[ds.id] = ds
	g.mu.Unlock()

	if err := g.auditLog.Append(ctx, audit.Record{
		Kind:          audit.KindDatasetEncrypted,
		Ref:           ds.id.String(),
		ParamsSummary: fmt.Sprintf("category=%s scheme=%s records=%d", category, ds.schemeID, len(values)),
		Decision:      audit.DecisionGranted,
	}); err != nil {
		// Fail closed: unlink the dataset we cannot account for.
		g.mu.Lock()
		delete(g.datasets, ds.id)
		g.mu.Unlock()
		return domain.DatasetID{}, err
	}
	return ds.id, nil
}

// Compute evaluates op over the dataset's ciphertexts without decrypting
// them and audits the outcome either way. The dataset access count records
// every attempt, failed ones included, so probing shows up in Info.
func (g *Gateway) Compute(ctx context.Context, datasetID domain.DatasetID, op Operation) ([]byte, error) {
	// Snapshot the blobs while holding the read lock: RotateKeys and Delete
	// zero ciphertext buffers in place under the write lock, so the scheme
	// must never see the shared backing arrays.
	g.mu.RLock()
	ds, ok := g.datasets[datasetID]
	var ciphertexts [][]byte
	if ok {
		ciphertexts = make([][]byte, len(ds.ciphertexts))
		for i, ct := range ds.ciphertexts {
			ciphertexts[i] = append([]byte(nil), ct...)
		}
	}
	g.mu.RUnlock()

	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "dataset %s not found", datasetID)
	}

	ds.accessCount.Add(1)

	result, err := g.scheme.Compute(ciphertexts, op)
	if err != nil {
		if auditErr := g.auditLog.Append(ctx, audit.Record{
			Kind:          audit.KindComputeFailed,
			Ref:           datasetID.String(),
			ParamsSummary: fmt.Sprintf("op=%s", op),
			Decision:      audit.DecisionFailed,
			Reason:        err.Error(),
		}); auditErr != nil {
			return nil, auditErr
		}
		return nil, err
	}

	if err := g.auditLog.Append(ctx, audit.Record{
		Kind:          audit.KindDatasetComputed,
		Ref:           datasetID.String(),
		ParamsSummary: fmt.Sprintf("op=%s records=%d", op, len(ciphertexts)),
		Decision:      audit.DecisionGranted,
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Decrypt recovers the plaintext of a ciphertext produced by Encrypt or
// Compute. The caller must present a valid decrypt capability token; the
// operator it names is recorded in the audit trail.
func (g *Gateway) Decrypt(ctx context.Context, token string, ciphertext []byte) ([]float64, error) {
	operator, err := g.caps.VerifyDecrypt(token)
	if err != nil {
		return nil, err
	}

	g.mu.RLock()
	active := g.active
	retired := g.retired
	retiredAt := g.retiredAt
	g.mu.RUnlock()

	values, err := g.scheme.Decrypt(active, ciphertext)
	if err != nil && retired != nil && g.now().Sub(retiredAt) <= g.grace {
		values, err = g.scheme.Decrypt(retired, ciphertext)
	}
	if err != nil {
		return nil, err
	}

	if err := g.auditLog.Append(ctx, audit.Record{
		Kind:          audit.KindDatasetDecrypted,
		Ref:           operator,
		ParamsSummary: fmt.Sprintf("values=%d", len(values)),
		Decision:      audit.DecisionGranted,
	}); err != nil {
		return nil, err
	}
	return values, nil
}

// Delete destroys a dataset. Ciphertext buffers are zeroed before the index
// entry is unlinked so no copy of the encrypted data outlives the audit
// record of its destruction.
func (g *Gateway) Delete(ctx context.Context, datasetID domain.DatasetID) error {
	g.mu.Lock()
	ds, ok := g.datasets[datasetID]
	if ok {
		for _, ct := range ds.ciphertexts {
			for i := range ct {
				ct[i] = 0
			}
		}
		ds.ciphertexts = nil
		delete(g.datasets, datasetID)
	}
	g.mu.Unlock()

	if !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "dataset %s not found", datasetID)
	}
	return g.auditLog.Append(ctx, audit.Record{
		Kind:     audit.KindDatasetDestroyed,
		Ref:      datasetID.String(),
		Decision: audit.DecisionGranted,
	})
}

// Info returns metadata about a stored dataset.
func (g *Gateway) Info(datasetID domain.DatasetID) (DatasetInfo, error) {
	g.mu.RLock()
	ds, ok := g.datasets[datasetID]
	g.mu.RUnlock()
	if !ok {
		return DatasetInfo{}, dErrors.Newf(dErrors.CodeNotFound, "dataset %s not found", datasetID)
	}
	return DatasetInfo{
		ID:          ds.id,
		Category:    ds.category,
		SchemeID:    ds.schemeID,
		KeyID:       ds.keyID,
		Records:     len(ds.ciphertexts),
		CreatedAt:   ds.createdAt,
		ExpiresAt:   ds.expiresAt,
		AccessCount: ds.accessCount.Load(),
	}, nil
}

// SweepExpired destroys every dataset whose policy retention has elapsed.
func (g *Gateway) SweepExpired(ctx context.Context) (int, error) {
	now := g.now()

	g.mu.RLock()
	var expired []domain.DatasetID
	for id, ds := range g.datasets {
		if !ds.expiresAt.After(now) {
			expired = append(expired, id)
		}
	}
	g.mu.RUnlock()

	destroyed := 0
	for _, id := range expired {
		if err := g.Delete(ctx, id); err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue
			}
			return destroyed, err
		}
		destroyed++
	}
	return destroyed, nil
}

// RunRetentionSweeper destroys expired datasets on the given interval until
// ctx is cancelled.
func (g *Gateway) RunRetentionSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			destroyed, err := g.SweepExpired(ctx)
			if err != nil {
				g.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
				continue
			}
			if destroyed > 0 {
				g.logger.InfoContext(ctx, "expired datasets destroyed", "destroyed", destroyed)
			}
		}
	}
}

// RotateKeys mints the next key generation and re-encrypts every stored
// dataset under it. The outgoing key stays available for decryption for the
// grace period, then its material is zeroed.
func (g *Gateway) RotateKeys(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	next, err := g.scheme.GenerateKeys(g.active.KeyID + 1)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeSchemeUnavailable, "generate rotated keys")
	}

	reencrypted := 0
	for _, ds := range g.datasets {
		if ds.keyID != g.active.KeyID {
			continue
		}
		values := make([]float64, 0, len(ds.ciphertexts))
		for _, ct := range ds.ciphertexts {
			plain, err := g.scheme.Decrypt(g.active, ct)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeSchemeUnavailable, "decrypt dataset for rotation")
			}
			values = append(values, plain...)
		}
		fresh, err := g.scheme.Encrypt(next, values)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeSchemeUnavailable, "re-encrypt dataset")
		}
		for _, ct := range ds.ciphertexts {
			for i := range ct {
				ct[i] = 0
			}
		}
		ds.ciphertexts = fresh
		ds.keyID = next.KeyID
		reencrypted++
	}

	if g.retired != nil {
		g.retired.Zero()
	}
	g.retired = g.active
	g.retiredAt = g.now()
	g.active = next

	return g.auditLog.Append(ctx, audit.Record{
		Kind:          audit.KindKeyRotated,
		Ref:           string(g.scheme.ID()),
		ParamsSummary: fmt.Sprintf("generation=%d reencrypted=%d", next.KeyID, reencrypted),
		Decision:      audit.DecisionGranted,
	})
}

// RunKeyRotation rotates keys on the given interval until ctx is cancelled.
func (g *Gateway) RunKeyRotation(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.RotateKeys(ctx); err != nil {
				g.logger.ErrorContext(ctx, "key rotation failed", "error", err)
			}
		}
	}
}
