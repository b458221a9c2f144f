package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/gotransfer/internal/adapter/http/dto"
	"github.com/iho/gotransfer/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		ErrorCode: code,
		Message:   message,
	})
}

// mapDomainError maps a domain error to an HTTP status and a stable error
// code. Anything unclassified is an internal error; driver details never
// leak past the core, which wraps them as domain.ErrStorage.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "ACC-404"
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, "TRF-404"
	case errors.Is(err, domain.ErrAccountNotActive):
		return http.StatusForbidden, "ACC-403"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusBadRequest, "TRF-400"
	case errors.Is(err, domain.ErrDuplicateTransfer):
		return http.StatusConflict, "TRF-409"
	case errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict, "TRF-409-RETRY"
	case errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrMissingKey),
		errors.Is(err, domain.ErrInvalidHolderName),
		errors.Is(err, domain.ErrNegativeBalance),
		errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusUnprocessableEntity, "VAL-422"
	default:
		return http.StatusInternalServerError, "SYS-500"
	}
}

// writeDomainError writes err mapped to its status and code.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := mapDomainError(err)
	writeError(w, status, code, err.Error())
}

// parseIDParam parses a numeric path parameter.
func parseIDParam(value string) (int64, error) {
	return strconv.ParseInt(value, 10, 64)
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return i
}
