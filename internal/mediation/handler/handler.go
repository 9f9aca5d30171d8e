// Package handler wires the mediation facade to HTTP. It is a thin
// translation layer: decode, delegate, encode.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"privacygate/internal/anonymize"
	"privacygate/internal/audit"
	"privacygate/internal/budget"
	"privacygate/internal/mediation"
	"privacygate/internal/securecompute"
	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
	"privacygate/pkg/platform/httputil"
	"privacygate/pkg/requestcontext"
)

// Service defines the mediation operations the HTTP layer exposes.
type Service interface {
	MediateQuery(ctx context.Context, source domain.DataSourceID, category domain.DataCategory, epsilon, sensitivity float64, values []float64) (*mediation.QueryResult, error)
	EncryptDataset(ctx context.Context, category domain.DataCategory, values []float64) (domain.DatasetID, error)
	ComputeOnDataset(ctx context.Context, datasetID domain.DatasetID, operation string) ([]byte, error)
	DecryptResult(ctx context.Context, token string, ciphertext []byte) ([]float64, error)
	Anonymize(ctx context.Context, category domain.DataCategory, records []anonymize.Record, k, l int, suppressionThreshold float64) (*anonymize.Result, error)
	BudgetStatus(ctx context.Context, source domain.DataSourceID) (*budget.Status, error)
	ListBudgets(ctx context.Context) ([]*budget.Status, error)
	AuditTrail(ctx context.Context, filter audit.Filter) ([]audit.Record, error)
	DatasetInfo(ctx context.Context, datasetID domain.DatasetID) (securecompute.DatasetInfo, error)
}

// Handler exposes the mediation endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a mediation handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the mediation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/query", h.HandleMediateQuery)
	r.Post("/datasets", h.HandleEncrypt)
	r.Get("/datasets/{datasetID}", h.HandleDatasetInfo)
	r.Post("/datasets/{datasetID}/compute", h.HandleCompute)
	r.Post("/decrypt", h.HandleDecrypt)
	r.Post("/anonymize", h.HandleAnonymize)
	r.Get("/budget", h.HandleListBudgets)
	r.Get("/budget/{dataSourceID}", h.HandleBudgetStatus)
	r.Get("/audit", h.HandleAuditTrail)
}

// HandleMediateQuery handles POST /query.
func (h *Handler) HandleMediateQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[MediateQueryRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	source, category, err := req.Parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.MediateQuery(ctx, source, category, req.Epsilon, req.Sensitivity, req.Values)
	if err != nil {
		h.logger.WarnContext(ctx, "query rejected",
			"request_id", requestcontext.RequestID(ctx),
			"data_source_id", req.DataSourceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromQueryResult(result))
}

// HandleEncrypt handles POST /datasets.
func (h *Handler) HandleEncrypt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[EncryptRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	category, err := domain.ParseDataCategory(req.DataCategory)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	id, err := h.service.EncryptDataset(ctx, category, req.Values)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, EncryptResponse{DatasetID: id.String()})
}

// HandleDatasetInfo handles GET /datasets/{datasetID}.
func (h *Handler) HandleDatasetInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseDatasetID(chi.URLParam(r, "datasetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	info, err := h.service.DatasetInfo(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDatasetInfo(info))
}

// HandleCompute handles POST /datasets/{datasetID}/compute.
func (h *Handler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseDatasetID(chi.URLParam(r, "datasetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.DecodeJSON[ComputeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ciphertext, err := h.service.ComputeOnDataset(ctx, id, req.Operation)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ComputeResponse{Ciphertext: ciphertext})
}

// HandleDecrypt handles POST /decrypt. The capability token arrives as the
// Authorization bearer token.
func (h *Handler) HandleDecrypt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[DecryptRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	values, err := h.service.DecryptResult(ctx, requestcontext.Operator(ctx), req.Ciphertext)
	if err != nil {
		h.logger.WarnContext(ctx, "decrypt rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DecryptResponse{Values: values})
}

// HandleAnonymize handles POST /anonymize.
func (h *Handler) HandleAnonymize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[AnonymizeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	category, err := domain.ParseDataCategory(req.DataCategory)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := req.DomainRecords()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Anonymize(ctx, category, records, req.K, req.L, req.SuppressionThreshold)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAnonymizeResult(result))
}

// HandleListBudgets handles GET /budget.
func (h *Handler) HandleListBudgets(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.ListBudgets(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statuses)
}

// HandleBudgetStatus handles GET /budget/{dataSourceID}.
func (h *Handler) HandleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	source, err := domain.ParseDataSourceID(chi.URLParam(r, "dataSourceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.service.BudgetStatus(ctx, source)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleAuditTrail handles GET /audit with optional kind, ref, and limit
// query parameters.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := audit.Filter{
		Kind: audit.Kind(r.URL.Query().Get("kind")),
		Ref:  r.URL.Query().Get("ref"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}

	records, err := h.service.AuditTrail(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAuditRecords(records))
}
