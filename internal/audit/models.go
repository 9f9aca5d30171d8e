package audit

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies audit records by the privacy-relevant operation they trace.
type Kind string

const (
	KindQueryMediated      Kind = "query_mediated"
	KindQueryRejected      Kind = "query_rejected"
	KindDatasetEncrypted   Kind = "dataset_encrypted"
	KindDatasetComputed    Kind = "dataset_computed"
	KindDatasetDestroyed   Kind = "dataset_destroyed"
	KindRecordsAnonymized  Kind = "records_anonymized"
	KindAnonymizeRejected  Kind = "anonymize_rejected"
	KindKeyRotated         Kind = "key_rotated"
	KindBudgetReset        Kind = "budget_reset"
	KindDatasetDecrypted   Kind = "dataset_decrypted"
	KindComputeFailed      Kind = "dataset_compute_failed"
	KindEncryptionRejected Kind = "encryption_rejected"
)

// Record is one append-only entry in the audit trail. ParamsSummary holds
// the privacy-relevant parameters (epsilon spent, k/l, operation name) in a
// compact human-readable form; raw data and key material never appear here.
type Record struct {
	ID            uuid.UUID
	Kind          Kind
	Ref           string
	ParamsSummary string
	Decision      string
	Reason        string
	Timestamp     time.Time
}

// Decisions recorded on audit entries.
const (
	DecisionGranted  = "granted"
	DecisionRejected = "rejected"
	DecisionFailed   = "failed"
)

// Filter narrows a Query. Zero values match everything; Limit == 0 means
// no limit.
type Filter struct {
	Kind  Kind
	Ref   string
	Limit int
}
