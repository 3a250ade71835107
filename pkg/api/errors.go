package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/assessment-platform/enginer/pkg/composer"
	"github.com/assessment-platform/enginer/pkg/evaluator"
	"github.com/assessment-platform/enginer/pkg/session"
	"github.com/assessment-platform/enginer/pkg/store"
)

// errorEnvelope is the stable JSON error shape: {error, message, details?}.
// The "error" field is a machine-stable code clients can switch on; status
// codes are authoritative, the code is for client-side branching.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// abortWithError maps err to the documented status/code and writes the
// envelope, aborting the gin chain.
func abortWithError(c *gin.Context, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: code, Message: err.Error()})
}

// mapError translates a sentinel or wrapped error from the facade/session/
// composer/scoring/evaluator layers into an HTTP status and stable error
// code, per the documented error taxonomy.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, session.ErrAlreadyTerminal):
		return http.StatusGone, "already_terminal"
	case errors.Is(err, session.ErrNotReady):
		return http.StatusConflict, "not_ready"
	case errors.Is(err, session.ErrWrongCandidate):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, composer.ErrAssessmentIncomplete):
		return http.StatusBadRequest, "assessment_incomplete"
	case errors.Is(err, composer.ErrGeneratorUnavailable):
		return http.StatusServiceUnavailable, "generator_unavailable"
	case errors.Is(err, evaluator.ErrSourceTooLarge), errors.Is(err, evaluator.ErrLanguageNotAllowed):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
