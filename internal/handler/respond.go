package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error        string           `json:"error"`
	Code         string           `json:"code,omitempty"`
	ActualStatus enum.OrderStatus `json:"actual_status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError maps the domain error taxonomy onto HTTP statuses. Unknown
// errors are logged and hidden behind a 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "precondition_failed", ActualStatus: conflict.Actual})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error(), Code: "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "invalid_transition"})
	case errors.Is(err, domain.ErrPreconditionFailed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "precondition_failed"})
	case errors.Is(err, domain.ErrConsistencyViolation):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "consistency_violation"})
	case errors.Is(err, domain.ErrShiftAlreadyOpen):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "shift_already_open"})
	case errors.Is(err, domain.ErrShiftNotOpen):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "shift_not_open"})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: "invalid_input"})
	case errors.Is(err, domain.ErrTransport):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unreachable, terminal is offline", Code: "offline"})
	default:
		logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
