// Package api is the public HTTP surface of the server: JSON request
// handlers over the services layer, bearer-token authentication and the
// mapping from domain errors to HTTP statuses.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError translates a domain error into a status and a stable machine
// code. Anything unmapped is reported as a 500 with no detail, so internal
// failure text never reaches a client.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	message := "internal error"

	switch {
	case errors.Is(err, common.ErrorUnauthenticated) || errors.Is(err, common.ErrInvalidToken):
		status, code, message = http.StatusUnauthorized, "unauthenticated", "authentication required"
	case errors.Is(err, common.ErrRefreshTokenExpired):
		status, code, message = http.StatusUnauthorized, "token_expired", "refresh token expired"
	case errors.Is(err, common.ErrorForbidden):
		status, code, message = http.StatusForbidden, "forbidden", "operation not permitted"
	case errors.Is(err, common.ErrorNotFound):
		status, code, message = http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, common.ErrorInvalidInput):
		status, code, message = http.StatusBadRequest, "invalid_input", err.Error()
	case errors.Is(err, common.ErrorNotEmpty):
		status, code, message = http.StatusConflict, "not_empty", "folder is not empty"
	case errors.Is(err, common.ErrorLoginAlreadyExists):
		status, code, message = http.StatusConflict, "email_taken", "email already registered"
	case errors.Is(err, common.ErrorRecipientUnresolvable):
		status, code, message = http.StatusUnprocessableEntity, "recipient_unresolvable", "recipient unknown or has no published key"
	case errors.Is(err, common.ErrorContentMissing):
		status, code, message = http.StatusGone, "content_missing", "file content is no longer available"
	case errors.Is(err, common.ErrorStoreUnavailable):
		status, code, message = http.StatusServiceUnavailable, "store_unavailable", "object store unavailable"
	}

	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return common.ErrorInvalidInput
	}
	return nil
}
