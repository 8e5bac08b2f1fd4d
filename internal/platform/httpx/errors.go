package httpx

import (
	"errors"
	"net/http"

	"github.com/scmdesk/scmdesk/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Already Processed", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// IsClientError reports whether err maps to a 4xx response.
func IsClientError(err error) bool {
	return errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrDuplicate) ||
		errors.Is(err, shared.ErrInvalidState) ||
		errors.Is(err, shared.ErrIdempotencyConflict) ||
		errors.Is(err, shared.ErrValidation)
}
