package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/livraria/livraria-api/internal/errors"
	"github.com/livraria/livraria-api/internal/store"
	"github.com/livraria/livraria-api/internal/validation"
)

// Messages for errors produced by the HTTP layer itself.
const (
	msgInvalidInput     = "Dados inválidos"
	msgInternal         = "Erro interno do servidor"
	msgRouteNotFound    = "Rota não encontrada"
	msgMethodNotAllowed = "Método não permitido"
	msgUnavailable      = "Servidor em manutenção, tente novamente em instantes"
	msgRateLimited      = "Muitas requisições. Tente novamente mais tarde."
)

// APIError is the error envelope. It implements huma.StatusError so handlers
// and huma itself produce the same body.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Success bool                    `json:"success" doc:"Always false"`
	Message string                  `json:"message" doc:"Human-readable error message"`
	Code    string                  `json:"code" doc:"Machine-readable error code"`
	Errors  []validation.FieldError `json:"errors,omitempty" doc:"Per-field validation errors"`
	Detail  string                  `json:"detail,omitempty" doc:"Underlying cause, hidden in production"`
	Meta    *Meta                   `json:"meta,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// errorMapper turns any error into an APIError.
type errorMapper struct {
	logger       *slog.Logger
	exposeDetail bool
}

// RegisterErrorHandler configures huma to answer with the error envelope.
// Call this after creating the huma.API but before registering routes.
// exposeDetail adds the underlying cause to bodies; disable it in production.
func RegisterErrorHandler(logger *slog.Logger, exposeDetail bool) {
	m := &errorMapper{logger: logger, exposeDetail: exposeDetail}
	huma.NewError = m.newError
}

func (m *errorMapper) newError(status int, message string, errs ...error) huma.StatusError {
	for _, err := range errs {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return m.fromDomain(domainErr)
		}

		var storeErr *store.Error
		if errors.As(err, &storeErr) {
			return m.fromStore(storeErr)
		}
	}

	// Request decoding and schema errors
	if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
		if fields := fieldErrors(errs); len(fields) > 0 || status == http.StatusUnprocessableEntity {
			return &APIError{
				status:  http.StatusBadRequest,
				Message: msgInvalidInput,
				Code:    string(domainerrors.CodeValidation),
				Errors:  fields,
			}
		}
	}

	if status >= http.StatusInternalServerError {
		cause := errors.Join(errs...)
		if m.logger != nil {
			m.logger.Error("unhandled error", "status", status, "message", message, "error", cause)
		}
		apiErr := &APIError{
			status:  status,
			Message: msgInternal,
			Code:    statusToCode(status),
		}
		if cause != nil {
			apiErr.Detail = m.detail(cause)
		}
		return apiErr
	}

	return &APIError{
		status:  status,
		Message: message,
		Code:    statusToCode(status),
	}
}

func (m *errorMapper) fromDomain(err *domainerrors.Error) *APIError {
	apiErr := &APIError{
		status:  err.HTTPStatus(),
		Message: err.Message,
		Code:    string(err.Code),
	}
	if fields, ok := err.Details.([]validation.FieldError); ok {
		apiErr.Errors = fields
	}
	if cause := err.Unwrap(); cause != nil {
		apiErr.Detail = m.detail(cause)
	}
	return apiErr
}

func (m *errorMapper) fromStore(err *store.Error) *APIError {
	apiErr := &APIError{
		status:  err.HTTPCode(),
		Message: err.Message,
		Code:    statusToCode(err.HTTPCode()),
	}
	if err.HTTPCode() >= http.StatusInternalServerError && m.logger != nil {
		m.logger.Error("store error", "error", err)
	}
	if err.Err != nil {
		apiErr.Detail = m.detail(err.Err)
	}
	return apiErr
}

func (m *errorMapper) detail(err error) string {
	if !m.exposeDetail {
		return ""
	}
	return err.Error()
}

// fieldErrors converts huma error details into the envelope field list.
// Locations such as "body.titulo" or "query.limit" lose their prefix.
func fieldErrors(errs []error) []validation.FieldError {
	var fields []validation.FieldError
	for _, err := range errs {
		var detailer huma.ErrorDetailer
		if !errors.As(err, &detailer) {
			continue
		}
		d := detailer.ErrorDetail()
		field := d.Location
		for _, prefix := range []string{"body.", "query.", "path.", "header."} {
			field = strings.TrimPrefix(field, prefix)
		}
		fields = append(fields, validation.FieldError{Field: field, Message: d.Message})
	}
	return fields
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	case http.StatusServiceUnavailable:
		return string(domainerrors.CodeUnavailable)
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		return string(domainerrors.CodeInternal)
	}
}

// writeError writes the error envelope outside of huma, for middleware and
// router fallbacks.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	meta := newMeta(r.Context())
	body := &APIError{
		status:  status,
		Message: message,
		Code:    statusToCode(status),
		Meta:    &meta,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
