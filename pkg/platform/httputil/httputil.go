// Package httputil centralizes JSON response and error encoding for the
// HTTP transport so handlers stay thin.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "privacygate/pkg/domain-errors"
)

// WriteJSON encodes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError maps a domain error to an HTTP response. Internal errors omit
// the description so storage details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)

	body := errorBody{Error: errorToken(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message
		} else {
			body.Description = err.Error()
		}
	}
	WriteJSON(w, status, body)
}

// DecodeJSON decodes the request body into T, rejecting unknown fields.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var req T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed request body")
	}
	return req, nil
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodePolicyMismatch:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeInsufficientBudget:
		return http.StatusTooManyRequests
	case dErrors.CodeSuppressionThreshold:
		return http.StatusUnprocessableEntity
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorToken(code dErrors.Code) string {
	switch code {
	case dErrors.CodeInternal, dErrors.CodeAuditWriteFailure, dErrors.CodeInvariantViolation:
		return "internal_error"
	default:
		return string(code)
	}
}
