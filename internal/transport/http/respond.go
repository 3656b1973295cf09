package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"course-ledger-service/internal/domain"
	"github.com/sirupsen/logrus"
)

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain error kinds onto status codes.
func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	body := errorBody{Message: err.Error()}
	status := http.StatusInternalServerError

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		status, body.Error, body.Fields = http.StatusBadRequest, "validation", ve.Fields
	case errors.Is(err, domain.ErrNotFound):
		status, body.Error = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		status, body.Error = http.StatusConflict, "invalid_state_transition"
	case errors.Is(err, domain.ErrVersionConflict):
		status, body.Error = http.StatusConflict, "version_conflict"
	case errors.Is(err, domain.ErrNoActiveAttempt):
		status, body.Error = http.StatusConflict, "no_active_attempt"
	case errors.Is(err, domain.ErrPermissionDenied):
		status, body.Error = http.StatusForbidden, "permission_denied"
	case errors.Is(err, domain.ErrCompletionPolicyViolation):
		status, body.Error = http.StatusUnprocessableEntity, "completion_policy_violation"
	default:
		body.Error = "internal"
		body.Message = "internal error"
		log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.NewValidationError("body", err.Error())
	}
	return nil
}
