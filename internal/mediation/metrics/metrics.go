package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	QueriesMediated    prometheus.Counter
	QueriesRejected    prometheus.Counter
	EpsilonSpent       prometheus.Counter
	DatasetsEncrypted  prometheus.Counter
	Computations       prometheus.Counter
	AnonymizationRuns  prometheus.Counter
	PolicyViolations   prometheus.Counter
	RecordsSuppressed  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		QueriesMediated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "privacygate_queries_mediated_total",
			Help: "Total number of differential-privacy queries answered",
		}),
		QueriesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "privacygate_queries_rejected_total",
			Help: "Total number of queries rejected by policy or budget checks",
		}),
		EpsilonSpent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "privacygate_epsilon_spent_total",
			Help: "Cumulative privacy budget debited across all data sources",
		}),
		DatasetsEncrypted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "privacygate_datasets_encrypted_total",
			Help: "Total number of record sets encrypted by the gateway",
		}),
		Computations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "privacygate_computations_total",
			Help: "Total number of homomorphic computations run on ciphertexts",
		}),
		AnonymizationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "privacygate_anonymization_runs_total",
			Help: "Total number of record sets passed through the anonymization pipeline",
		}),
		PolicyViolations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "privacygate_policy_violations_total",
			Help: "Total number of operations rejected with a policy cause",
		}),
		RecordsSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "privacygate_records_suppressed_total",
			Help: "Total number of records suppressed during anonymization",
		}),
	}
}

func (m *Metrics) IncrementQueriesMediated() { m.QueriesMediated.Inc() }

func (m *Metrics) IncrementQueriesRejected() { m.QueriesRejected.Inc() }

func (m *Metrics) AddEpsilonSpent(epsilon float64) { m.EpsilonSpent.Add(epsilon) }

func (m *Metrics) IncrementDatasetsEncrypted() { m.DatasetsEncrypted.Inc() }

func (m *Metrics) IncrementComputations() { m.Computations.Inc() }

func (m *Metrics) IncrementAnonymizationRuns() { m.AnonymizationRuns.Inc() }

func (m *Metrics) IncrementPolicyViolations() { m.PolicyViolations.Inc() }

func (m *Metrics) AddRecordsSuppressed(count int) { m.RecordsSuppressed.Add(float64(count)) }
