package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"costumier/internal/domain"
)

const (
	codeValidation  = "validation"
	codeNotFound    = "not_found"
	codeConflict    = "conflict"
	codeForbidden   = "forbidden"
	codeRateLimited = "rate_limited"
	codeInternal    = "internal"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// writeDomainError maps the error taxonomy onto HTTP statuses and stable
// codes. Unknown errors become opaque 500s; the caller logs the details.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrPastDate), errors.Is(err, domain.ErrNegativeStock):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case domain.IsConflict(err):
		writeError(w, http.StatusBadRequest, codeConflict, err.Error())
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, codeRateLimited, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
