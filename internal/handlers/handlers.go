package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/collabthon/collabthon-api/internal/collaboration"
	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/collabthon/collabthon-api/internal/repository"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps domain errors onto stable machine-readable codes. Anything
// outside the taxonomy is reported as an internal error without detail.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, models.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrNotAuthorized):
		status, code = http.StatusForbidden, "not_authorized"
	case errors.Is(err, models.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, models.ErrDuplicateRequest):
		status, code = http.StatusConflict, "duplicate_request"
	case errors.Is(err, models.ErrEntitlementDenied):
		status, code = http.StatusPaymentRequired, "entitlement_denied"
	case errors.Is(err, collaboration.ErrProjectClosed):
		status, code = http.StatusConflict, "project_closed"
	case errors.Is(err, collaboration.ErrSelfCollaboration),
		errors.Is(err, collaboration.ErrMessageTooLong),
		errors.Is(err, repository.ErrInvalidCursor):
		status, code = http.StatusBadRequest, "invalid_request"
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    "internal_error",
			Message: "an internal error occurred",
		})
		return
	}

	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// decodeAndValidate parses the JSON body into dst and applies its validation
// tags. Payloads are checked here, at the boundary, so the services below
// only ever see well-formed input.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request payload")
	}
	return validate.Struct(dst)
}
