package handler

import (
	"time"

	"privacygate/internal/anonymize"
	"privacygate/internal/audit"
	"privacygate/internal/mediation"
	"privacygate/internal/securecompute"
)

// QueryResponse is the body of a successful POST /query.
type QueryResponse struct {
	Values       []float64 `json:"values"`
	EpsilonSpent float64   `json:"epsilon_spent"`
	Remaining    float64   `json:"remaining"`
}

func FromQueryResult(r *mediation.QueryResult) QueryResponse {
	return QueryResponse{
		Values:       r.Values,
		EpsilonSpent: r.EpsilonSpent,
		Remaining:    r.Remaining,
	}
}

// EncryptResponse is the body of a successful POST /datasets.
type EncryptResponse struct {
	DatasetID string `json:"dataset_id"`
}

// ComputeResponse is the body of a successful compute call.
type ComputeResponse struct {
	Ciphertext []byte `json:"ciphertext"`
}

// DecryptResponse is the body of a successful POST /decrypt.
type DecryptResponse struct {
	Values []float64 `json:"values"`
}

// AnonymizeResponse is the body of a successful POST /anonymize.
type AnonymizeResponse struct {
	Records         []AnonymizeRecord `json:"records"`
	SuppressionRate float64           `json:"suppression_rate"`
}

func FromAnonymizeResult(r *anonymize.Result) AnonymizeResponse {
	records := make([]AnonymizeRecord, len(r.Records))
	for i, rec := range r.Records {
		records[i] = AnonymizeRecord{
			QuasiIdentifiers: rec.QuasiIdentifiers,
			Sensitive:        rec.Sensitive,
		}
	}
	return AnonymizeResponse{Records: records, SuppressionRate: r.SuppressionRate}
}

// AuditRecordResponse is one entry of GET /audit.
type AuditRecordResponse struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Ref           string    `json:"ref"`
	ParamsSummary string    `json:"params_summary"`
	Decision      string    `json:"decision"`
	Reason        string    `json:"reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func FromAuditRecords(records []audit.Record) []AuditRecordResponse {
	out := make([]AuditRecordResponse, len(records))
	for i, r := range records {
		out[i] = AuditRecordResponse{
			ID:            r.ID.String(),
			Kind:          string(r.Kind),
			Ref:           r.Ref,
			ParamsSummary: r.ParamsSummary,
			Decision:      r.Decision,
			Reason:        r.Reason,
			Timestamp:     r.Timestamp,
		}
	}
	return out
}

// DatasetInfoResponse is the body of GET /datasets/{datasetID}.
type DatasetInfoResponse struct {
	ID          string    `json:"id"`
	Category    string    `json:"data_category"`
	SchemeID    string    `json:"scheme_id"`
	KeyID       uint32    `json:"key_id"`
	Records     int       `json:"records"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	AccessCount int64     `json:"access_count"`
}

func FromDatasetInfo(info securecompute.DatasetInfo) DatasetInfoResponse {
	return DatasetInfoResponse{
		ID:          info.ID.String(),
		Category:    info.Category.String(),
		SchemeID:    info.SchemeID.String(),
		KeyID:       info.KeyID,
		Records:     info.Records,
		CreatedAt:   info.CreatedAt,
		ExpiresAt:   info.ExpiresAt,
		AccessCount: info.AccessCount,
	}
}
