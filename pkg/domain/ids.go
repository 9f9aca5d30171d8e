// Package domain holds typed identifiers shared across the engine.
//
// Identifiers are distinct Go types so a data source can never be passed
// where a data category is expected. Construct from external input via the
// Parse functions; direct casting bypasses validation.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "privacygate/pkg/domain-errors"
)

// DataSourceID names a data source whose privacy budget is tracked.
// Distinct from DataCategory: one source may serve several categories.
type DataSourceID string

// DataCategory names a class of data governed by exactly one privacy policy.
type DataCategory string

// DatasetID is the opaque handle an external caller holds for an encrypted
// dataset. Only the secure computation gateway can resolve it.
type DatasetID uuid.UUID

// SchemeID names a registered encryption scheme.
type SchemeID string

// ParseDataSourceID validates an externally supplied data source identifier.
func ParseDataSourceID(s string) (DataSourceID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "data_source_id cannot be empty")
	}
	return DataSourceID(s), nil
}

func (d DataSourceID) String() string { return string(d) }
func (d DataSourceID) IsNil() bool    { return d == "" }

// ParseDataCategory validates an externally supplied data category.
func ParseDataCategory(s string) (DataCategory, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "data_category cannot be empty")
	}
	return DataCategory(s), nil
}

func (c DataCategory) String() string { return string(c) }
func (c DataCategory) IsNil() bool    { return c == "" }

// NewDatasetID mints a fresh globally unique dataset handle.
func NewDatasetID() DatasetID { return DatasetID(uuid.New()) }

// ParseDatasetID validates an externally supplied dataset handle.
func ParseDatasetID(s string) (DatasetID, error) {
	if s == "" {
		return DatasetID{}, dErrors.New(dErrors.CodeInvalidInput, "dataset_id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return DatasetID{}, dErrors.New(dErrors.CodeInvalidInput, "dataset_id must be a valid UUID")
	}
	if u == uuid.Nil {
		return DatasetID{}, dErrors.New(dErrors.CodeInvalidInput, "dataset_id cannot be the nil UUID")
	}
	return DatasetID(u), nil
}

func (d DatasetID) String() string { return uuid.UUID(d).String() }
func (d DatasetID) IsNil() bool    { return uuid.UUID(d) == uuid.Nil }

func (s SchemeID) String() string { return string(s) }
func (s SchemeID) IsNil() bool    { return s == "" }
