package handler

import (
	"privacygate/internal/anonymize"
	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

// MediateQueryRequest is the body of POST /query.
type MediateQueryRequest struct {
	DataSourceID string    `json:"data_source_id"`
	DataCategory string    `json:"data_category"`
	Epsilon      float64   `json:"epsilon"`
	Sensitivity  float64   `json:"sensitivity"`
	Values       []float64 `json:"values"`
}

func (r MediateQueryRequest) Parse() (domain.DataSourceID, domain.DataCategory, error) {
	src, err := domain.ParseDataSourceID(r.DataSourceID)
	if err != nil {
		return "", "", err
	}
	cat, err := domain.ParseDataCategory(r.DataCategory)
	if err != nil {
		return "", "", err
	}
	return src, cat, nil
}

// EncryptRequest is the body of POST /datasets.
type EncryptRequest struct {
	DataCategory string    `json:"data_category"`
	Values       []float64 `json:"values"`
}

// ComputeRequest is the body of POST /datasets/{datasetID}/compute.
type ComputeRequest struct {
	Operation string `json:"operation"`
}

// DecryptRequest is the body of POST /decrypt. Ciphertext is base64 on the
// wire via encoding/json's []byte handling.
type DecryptRequest struct {
	Ciphertext []byte `json:"ciphertext"`
}

// AnonymizeRecord is one record in an anonymization request.
type AnonymizeRecord struct {
	QuasiIdentifiers map[string]string `json:"quasi_identifiers"`
	Sensitive        string            `json:"sensitive"`
}

// AnonymizeRequest is the body of POST /anonymize.
type AnonymizeRequest struct {
	DataCategory         string            `json:"data_category"`
	K                    int               `json:"k"`
	L                    int               `json:"l"`
	SuppressionThreshold float64           `json:"suppression_threshold"`
	Records              []AnonymizeRecord `json:"records"`
}

func (r AnonymizeRequest) DomainRecords() ([]anonymize.Record, error) {
	if len(r.Records) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "records are required")
	}
	records := make([]anonymize.Record, len(r.Records))
	for i, rec := range r.Records {
		records[i] = anonymize.Record{
			QuasiIdentifiers: rec.QuasiIdentifiers,
			Sensitive:        rec.Sensitive,
		}
	}
	return records, nil
}
