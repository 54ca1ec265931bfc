package dto

import (
	"net/http"

	"github.com/facturado/backend/internal/domain/shared"
)

// Transport-level error codes. Domain codes come from the shared package
// and are passed through to clients unchanged.
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// Input shape problems map to 400, business rule violations to 422,
// conflicts on state or concurrent edits to 409.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInternal:     http.StatusInternalServerError,

	shared.CodeNotFound:            http.StatusNotFound,
	shared.CodeAlreadyExists:       http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,

	shared.CodeInvalidInput: http.StatusBadRequest,

	shared.CodeInvalidQuantity:    http.StatusUnprocessableEntity,
	shared.CodeInvalidDiscount:    http.StatusUnprocessableEntity,
	shared.CodeInvalidAmount:      http.StatusUnprocessableEntity,
	shared.CodeOverPayment:        http.StatusUnprocessableEntity,
	shared.CodeExceedsOriginal:    http.StatusUnprocessableEntity,
	shared.CodeRefundExceedsTotal: http.StatusUnprocessableEntity,
	shared.CodeInvalidTransition:  http.StatusConflict,

	shared.CodeLedgerInconsistency: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
