// Package handler is the HTTP façade: chi routes that translate requests
// into engine/reporting/balance calls and map their errors onto HTTP
// status codes.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/simonkvalheim/hm9-ledger/internal/model"
)

// parseURLUUID extracts and parses the named chi URL parameter, writing a
// 400 response and returning ok=false on a malformed id.
func parseURLUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+param+" format")
		return uuid.Nil, false
	}
	return id, true
}

// parseUUIDString parses a UUID from a request-body field without writing
// a response itself; callers map the error onto the relevant domain error.
func parseUUIDString(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// errorResponse is the JSON error body shape: {status, message, timestamp}.
type errorResponse struct {
	Status      int               `json:"status"`
	Message     string            `json:"message"`
	Timestamp   time.Time         `json:"timestamp"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: status, Message: message, Timestamp: time.Now()})
}

func writeFieldError(w http.ResponseWriter, status int, message string, fieldErrors map[string]string) {
	writeJSON(w, status, errorResponse{Status: status, Message: message, Timestamp: time.Now(), FieldErrors: fieldErrors})
}

// requestFieldErrors maps a request-validation sentinel error to the field
// it concerns, for the {fieldErrors: {field: message}} part of the error
// body. Errors outside this set (account-not-found, insufficient
// funds, and the like) are not field-level and fall through to writeError.
func requestFieldErrors(err error) map[string]string {
	switch {
	case errors.Is(err, model.ErrInvalidFromAccount):
		return map[string]string{"fromAccountId": err.Error()}
	case errors.Is(err, model.ErrInvalidToAccount):
		return map[string]string{"toAccountId": err.Error()}
	case errors.Is(err, model.ErrInvalidAmount):
		return map[string]string{"amount": err.Error()}
	case errors.Is(err, model.ErrInvalidAccountKind):
		return map[string]string{"accountType": err.Error()}
	case errors.Is(err, model.ErrSystemAccountKind):
		return map[string]string{"accountType": err.Error()}
	case errors.Is(err, model.ErrInvalidCurrency):
		return map[string]string{"currency": err.Error()}
	default:
		return nil
	}
}

// writeDomainError maps a sentinel error from model/validation/engine to an
// HTTP status and writes the error body, attaching
// fieldErrors when the error concerns a specific request field.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrAccountNotFound), errors.Is(err, model.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInsufficientFunds),
		errors.Is(err, model.ErrCurrencyMismatch),
		errors.Is(err, model.ErrInvalidTransaction),
		errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrSameAccount),
		errors.Is(err, model.ErrInvalidFromAccount),
		errors.Is(err, model.ErrInvalidToAccount),
		errors.Is(err, model.ErrDuplicateReferenceConflict),
		errors.Is(err, model.ErrInvalidAccountKind),
		errors.Is(err, model.ErrSystemAccountKind),
		errors.Is(err, model.ErrInvalidCurrency):
		if fields := requestFieldErrors(err); fields != nil {
			writeFieldError(w, http.StatusBadRequest, err.Error(), fields)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, model.ErrBalanceVerificationFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
