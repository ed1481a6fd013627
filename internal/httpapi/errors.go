package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var (
		validation *model.ValidationError
		notFound   *model.NotFoundError
		integrity  *model.ReferentialIntegrityError
		retryable  *model.RetryableError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &integrity):
		return http.StatusConflict
	case errors.As(err, &retryable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := ErrorResponse{Error: err.Error()}

	var validation *model.ValidationError
	if errors.As(err, &validation) {
		body.Field = validation.Field
	}

	log := zerolog.Ctx(r.Context())
	switch {
	case status >= http.StatusInternalServerError:
		log.Error().Err(err).Int("status", status).Msg("request failed")
		if status == http.StatusInternalServerError {
			body.Error = http.StatusText(status)
		}
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "1")
		}
	default:
		log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, r, status, body)
}
