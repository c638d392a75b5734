package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/khata/internal/adapter/http/dto"
	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

// Machine readable error codes.
const (
	CodeInvalidAmount          = "invalid_amount"
	CodeInvalidLoanTerms       = "invalid_loan_terms"
	CodeCollateralNotConfirmed = "collateral_not_confirmed"
	CodeInvalidStateTransition = "invalid_state_transition"
	CodeNotFound               = "not_found"
	CodeConflict               = "conflict"
	CodeValidation             = "validation_error"
	CodeBadRequest             = "bad_request"
	CodeUnauthorized           = "unauthorized"
	CodeForbidden              = "forbidden"
	CodeUnavailable            = "unavailable"
	CodeInternal               = "internal_error"
)

// loanBusyRetryAfter is the Retry-After hint sent when a loan is locked.
const loanBusyRetryAfter = "1"

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Code:    code,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes and error codes.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, CodeInvalidAmount
	case errors.Is(err, domain.ErrInvalidLoanTerms),
		errors.Is(err, domain.ErrInvalidRepaymentType),
		errors.Is(err, domain.ErrInvalidCollateral),
		errors.Is(err, domain.ErrInvalidLoanNumber):
		return http.StatusBadRequest, CodeInvalidLoanTerms
	case errors.Is(err, domain.ErrCollateralNotConfirmed):
		return http.StatusUnprocessableEntity, CodeCollateralNotConfirmed
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return http.StatusConflict, CodeInvalidStateTransition
	case domain.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrDuplicateLoanNumber), usecase.IsBusy(err):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, domain.ErrInvalidEntryType),
		errors.Is(err, domain.ErrInvalidEntityType),
		errors.Is(err, domain.ErrInvalidPartyName),
		errors.Is(err, domain.ErrInvalidPhone),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidTransactDate),
		errors.Is(err, domain.ErrInvalidDescription),
		errors.Is(err, domain.ErrInvalidPaymentType),
		errors.Is(err, domain.ErrInvalidPaymentMethod),
		errors.Is(err, domain.ErrInvalidLoanStatus),
		errors.Is(err, usecase.ErrAttachmentTooLarge),
		errors.Is(err, usecase.ErrUnsupportedContentType):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, domain.ErrMissingShop),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, domain.ErrInsufficientRole):
		return http.StatusForbidden, CodeForbidden
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondError writes err as a mapped error response. Unknown errors are
// logged and reported without details.
func respondError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status, code := mapDomainError(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(message)
		writeError(w, status, code, "internal server error", "")
		return
	}
	if errors.Is(err, domain.ErrLoanLocked) {
		w.Header().Set("Retry-After", loanBusyRetryAfter)
	}
	writeError(w, status, code, message, err.Error())
}

// decodeJSON decodes the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

// shopID returns the caller's shop, answering 401 when there is none.
func shopID(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor, ok := domain.ActorFromContext(r.Context())
	if !ok || actor.ShopID == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing shop scope", domain.ErrMissingShop.Error())
		return "", false
	}
	return actor.ShopID, true
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

// parseDateQuery parses an optional YYYY-MM-DD query parameter. A missing
// parameter yields the zero time.
func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return time.Time{}, nil
	}
	d, err := dto.ParseDate(val)
	if err != nil {
		return time.Time{}, err
	}
	return d.Time, nil
}
