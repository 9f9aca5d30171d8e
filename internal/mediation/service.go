// Package mediation is the single entry point collaborators call. It
// orchestrates the policy registry, budget ledger, noise mechanism,
// anonymization pipeline, and secure computation gateway, and guarantees
// that every privileged operation leaves exactly one audit record whether
// it succeeds or fails.
package mediation

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"privacygate/internal/anonymize"
	"privacygate/internal/audit"
	"privacygate/internal/budget"
	"privacygate/internal/events"
	"privacygate/internal/mediation/metrics"
	"privacygate/internal/noise"
	"privacygate/internal/policy"
	"privacygate/internal/securecompute"
	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

// QueryResult is the answer to a mediated differential-privacy query.
type QueryResult struct {
	Values       []float64
	EpsilonSpent float64
	Remaining    float64
}

// Service is the mediation facade.
type Service struct {
	policies *policy.Registry
	ledger   *budget.Ledger
	gateway  *securecompute.Gateway
	pipeline *anonymize.Pipeline
	auditLog *audit.Log

	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithEvents sets the outbound event publisher.
func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the prometheus metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPipeline overrides the default anonymization pipeline, e.g. to add
// quasi-identifier generalizers.
func WithPipeline(p *anonymize.Pipeline) Option {
	return func(s *Service) { s.pipeline = p }
}

// New constructs the mediation facade.
func New(policies *policy.Registry, ledger *budget.Ledger, gateway *securecompute.Gateway, auditLog *audit.Log, opts ...Option) (*Service, error) {
	if policies == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "policy registry is required")
	}
	if ledger == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "budget ledger is required")
	}
	if gateway == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "secure computation gateway is required")
	}
	if auditLog == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit log is required")
	}

	s := &Service{
		policies: policies,
		ledger:   ledger,
		gateway:  gateway,
		pipeline: anonymize.New(),
		auditLog: auditLog,
		logger:   slog.Default(),
		tracer:   otel.Tracer("mediation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MediateQuery answers a statistical query under differential privacy.
//
// Order is fixed: validate, policy lookup, technique check, budget reserve,
// noise, audit. A failed budget check stops the request before the
// mechanism runs. A mechanism failure after a successful reservation does
// NOT refund the spent epsilon: the privacy risk was taken the moment the
// query was sampled, so the debit stands and is audited as such.
func (s *Service) MediateQuery(ctx context.Context, source domain.DataSourceID, category domain.DataCategory, epsilon, sensitivity float64, values []float64) (*QueryResult, error) {
	ctx, span := s.tracer.Start(ctx, "mediation.MediateQuery")
	defer span.End()
	span.SetAttributes(
		attribute.String("data_source_id", source.String()),
		attribute.String("data_category", category.String()),
		attribute.Float64("epsilon", epsilon),
	)

	if source.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "data_source_id is required")
	}
	if err := noise.CheckEpsilonStrict(epsilon); err != nil {
		return nil, err
	}
	if err := noise.CheckSensitivityStrict(sensitivity); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "query values are required")
	}

	pol, err := s.policies.Lookup(category)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !pol.Requires(policy.TechniqueNoise) {
		rejErr := dErrors.Newf(dErrors.CodePolicyMismatch, "policy for category %q does not permit differential privacy queries", category)
		return nil, s.rejectQuery(ctx, span, source, category, epsilon, rejErr, true)
	}

	reservation, err := s.ledger.Reserve(ctx, source, epsilon)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInsufficientBudget) {
			return nil, s.rejectQuery(ctx, span, source, category, epsilon, err, false)
		}
		span.RecordError(err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AddEpsilonSpent(epsilon)
	}

	noised, err := noise.AddNoise(values, sensitivity, epsilon)
	if err != nil {
		// Budget stays spent. The audit record carries the debit so the
		// trail accounts for every unit of epsilon consumed.
		span.RecordError(err)
		if auditErr := s.auditLog.Append(ctx, audit.Record{
			Kind:          audit.KindQueryRejected,
			Ref:           source.String(),
			ParamsSummary: fmt.Sprintf("category=%s epsilon=%.4f sensitivity=%.4f", category, epsilon, sensitivity),
			Decision:      audit.DecisionFailed,
			Reason:        "noise mechanism failed after reservation; epsilon not refunded",
		}); auditErr != nil {
			return nil, auditErr
		}
		if s.metrics != nil {
			s.metrics.IncrementQueriesRejected()
		}
		return nil, err
	}

	if err := s.auditLog.Append(ctx, audit.Record{
		Kind:          audit.KindQueryMediated,
		Ref:           source.String(),
		ParamsSummary: fmt.Sprintf("category=%s epsilon=%.4f sensitivity=%.4f values=%d remaining=%.4f", category, epsilon, sensitivity, len(values), reservation.Remaining),
		Decision:      audit.DecisionGranted,
	}); err != nil {
		// Fail closed: the noised values are never released unaudited.
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementQueriesMediated()
	}
	s.logger.InfoContext(ctx, "query mediated",
		"data_source_id", source,
		"data_category", category,
		"epsilon", epsilon,
		"remaining", reservation.Remaining,
	)
	return &QueryResult{
		Values:       noised,
		EpsilonSpent: epsilon,
		Remaining:    reservation.Remaining,
	}, nil
}

// rejectQuery audits a pre-mechanism rejection and returns the causing
// error. Policy-caused rejections also raise a policy_violation event.
func (s *Service) rejectQuery(ctx context.Context, span trace.Span, source domain.DataSourceID, category domain.DataCategory, epsilon float64, cause error, policyCause bool) error {
	span.RecordError(cause)

	reason := "insufficient budget"
	if policyCause {
		reason = "technique not permitted by policy"
	}
	if err := s.auditLog.Append(ctx, audit.Record{
		Kind:          audit.KindQueryRejected,
		Ref:           source.String(),
		ParamsSummary: fmt.Sprintf("category=%s epsilon=%.4f", category, epsilon),
		Decision:      audit.DecisionRejected,
		Reason:        reason,
	}); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementQueriesRejected()
	}
	if policyCause {
		s.emitPolicyViolation(ctx, source.String(), fmt.Sprintf("category=%s: %s", category, reason))
	}
	return cause
}

// EncryptDataset encrypts a record set under the category's policy and
// returns its dataset handle. The gateway audits the outcome.
func (s *Service) EncryptDataset(ctx context.Context, category domain.DataCategory, values []float64) (domain.DatasetID, error) {
	ctx, span := s.tracer.Start(ctx, "mediation.EncryptDataset")
	defer span.End()
	span.SetAttributes(attribute.String("data_category", category.String()))

	id, err := s.gateway.Encrypt(ctx, category, values)
	if err != nil {
		span.RecordError(err)
		if dErrors.HasCode(err, dErrors.CodePolicyMismatch) {
			if s.metrics != nil {
				s.metrics.IncrementPolicyViolations()
			}
			s.emitPolicyViolation(ctx, category.String(), "encryption not required by policy")
		}
		return domain.DatasetID{}, err
	}
	if s.metrics != nil {
		s.metrics.IncrementDatasetsEncrypted()
	}
	return id, nil
}

// ComputeOnDataset runs a homomorphic operation on an encrypted dataset.
func (s *Service) ComputeOnDataset(ctx context.Context, datasetID domain.DatasetID, operation string) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "mediation.ComputeOnDataset")
	defer span.End()
	span.SetAttributes(
		attribute.String("dataset_id", datasetID.String()),
		attribute.String("operation", operation),
	)

	op, err := securecompute.ParseOperation(operation)
	if err != nil {
		return nil, err
	}
	result, err := s.gateway.Compute(ctx, datasetID, op)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementComputations()
	}
	return result, nil
}

// DecryptResult recovers a plaintext from a ciphertext produced by the
// gateway. The token must carry the decrypt capability.
func (s *Service) DecryptResult(ctx context.Context, token string, ciphertext []byte) ([]float64, error) {
	ctx, span := s.tracer.Start(ctx, "mediation.DecryptResult")
	defer span.End()

	values, err := s.gateway.Decrypt(ctx, token, ciphertext)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return values, nil
}

// Anonymize runs the k-anonymity then l-diversity pipeline over a record
// set. The category's policy must mandate anonymization.
func (s *Service) Anonymize(ctx context.Context, category domain.DataCategory, records []anonymize.Record, k, l int, suppressionThreshold float64) (*anonymize.Result, error) {
	ctx, span := s.tracer.Start(ctx, "mediation.Anonymize")
	defer span.End()
	span.SetAttributes(
		attribute.String("data_category", category.String()),
		attribute.Int("k", k),
		attribute.Int("l", l),
	)

	pol, err := s.policies.Lookup(category)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !pol.AnonymizationRequired && !pol.Requires(policy.TechniqueAnonymization) {
		rejErr := dErrors.Newf(dErrors.CodePolicyMismatch, "policy for category %q does not mandate anonymization", category)
		span.RecordError(rejErr)
		if auditErr := s.auditLog.Append(ctx, audit.Record{
			Kind:          audit.KindAnonymizeRejected,
			Ref:           category.String(),
			ParamsSummary: fmt.Sprintf("k=%d l=%d", k, l),
			Decision:      audit.DecisionRejected,
			Reason:        "anonymization not mandated by policy",
		}); auditErr != nil {
			return nil, auditErr
		}
		if s.metrics != nil {
			s.metrics.IncrementPolicyViolations()
		}
		s.emitPolicyViolation(ctx, category.String(), "anonymization not mandated by policy")
		return nil, rejErr
	}

	result, err := s.pipeline.Anonymize(records, k, l, suppressionThreshold)
	if err != nil {
		span.RecordError(err)
		if dErrors.HasCode(err, dErrors.CodeSuppressionThreshold) {
			if auditErr := s.auditLog.Append(ctx, audit.Record{
				Kind:          audit.KindAnonymizeRejected,
				Ref:           category.String(),
				ParamsSummary: fmt.Sprintf("k=%d l=%d threshold=%.4f records=%d", k, l, suppressionThreshold, len(records)),
				Decision:      audit.DecisionRejected,
				Reason:        "suppression threshold exceeded",
			}); auditErr != nil {
				return nil, auditErr
			}
			if s.metrics != nil {
				s.metrics.IncrementPolicyViolations()
			}
			s.emitPolicyViolation(ctx, category.String(), "suppression threshold exceeded")
		}
		return nil, err
	}

	if err := s.auditLog.Append(ctx, audit.Record{
		Kind:          audit.KindRecordsAnonymized,
		Ref:           category.String(),
		ParamsSummary: fmt.Sprintf("k=%d l=%d in=%d out=%d rate=%.4f", k, l, len(records), len(result.Records), result.SuppressionRate),
		Decision:      audit.DecisionGranted,
	}); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementAnonymizationRuns()
		s.metrics.AddRecordsSuppressed(len(records) - len(result.Records))
	}
	return result, nil
}

// BudgetStatus reports the remaining allowance of one data source.
func (s *Service) BudgetStatus(ctx context.Context, source domain.DataSourceID) (*budget.Status, error) {
	return s.ledger.Status(ctx, source)
}

// ListBudgets reports the budget state of every known data source.
func (s *Service) ListBudgets(ctx context.Context) ([]*budget.Status, error) {
	return s.ledger.List(ctx)
}

// AuditTrail returns audit records matching the filter, newest first.
func (s *Service) AuditTrail(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	return s.auditLog.Query(ctx, filter)
}

// DatasetInfo reports gateway metadata for a stored dataset.
func (s *Service) DatasetInfo(ctx context.Context, datasetID domain.DatasetID) (securecompute.DatasetInfo, error) {
	return s.gateway.Info(datasetID)
}

func (s *Service) emitPolicyViolation(ctx context.Context, kind, details string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(ctx, events.Event{
		Type:    events.TypePolicyViolation,
		Kind:    kind,
		Details: details,
	}); err != nil {
		s.logger.ErrorContext(ctx, "policy_violation event publish failed", "error", err)
	}
}
