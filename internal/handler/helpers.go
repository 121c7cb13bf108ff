package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/boddenberg/pj-tributario-go/internal/infra/observability"

	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies; a full profile is well under 4 KiB.
const maxBodyBytes = 64 << 10

// writeError answers non-2xx responses with a plain-text body.
func writeError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeStrict decodes exactly one JSON object into v, rejecting unknown
// fields and trailing data.
func decodeStrict(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &domain.ErrDomain{Field: "body", Message: "must contain a single JSON object"}
	}
	return nil
}

func decodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return &domain.ErrDomain{Field: "body", Message: "request body is required"}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &domain.ErrDomain{Field: "body", Message: "malformed JSON"}
	case errors.As(err, &typeErr):
		return &domain.ErrDomain{Field: typeErr.Field, Message: fmt.Sprintf("must be a %s", typeErr.Type)}
	case errors.As(err, &maxErr):
		return &domain.ErrDomain{Field: "body", Message: fmt.Sprintf("must not exceed %d bytes", maxErr.Limit)}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return &domain.ErrDomain{Field: field, Message: "unknown field"}
	default:
		return &domain.ErrDomain{Field: "body", Message: err.Error()}
	}
}

// failRequest records the outcome and writes the error response.
func failRequest(w http.ResponseWriter, err error, metrics *observability.Metrics, logger *zap.Logger) {
	var domainErr *domain.ErrDomain
	if errors.As(err, &domainErr) {
		metrics.IncrRequest("rejected")
		metrics.IncrValidationError(domainErr.Field)
	} else {
		metrics.IncrRequest("error")
	}
	handleServiceError(w, err, logger)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var domainErr *domain.ErrDomain
	var notFound *domain.ErrNotFound
	var unauthorized *domain.ErrUnauthorized
	var circuitOpen *domain.ErrCircuitOpen
	var external *domain.ErrExternalService
	var configuration *domain.ErrConfiguration

	switch {
	case errors.As(err, &domainErr):
		logger.Debug("domain error", zap.String("field", domainErr.Field), zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, domainErr.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, unauthorized.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, circuitOpen.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream service error")
	case errors.As(err, &configuration):
		logger.Error("configuration error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
