package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes used across the billing engine. Handlers map these to HTTP
// status codes; the codes themselves are part of the API contract.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidQuantity     = "INVALID_QUANTITY"
	CodeInvalidDiscount     = "INVALID_DISCOUNT"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeOverPayment         = "OVER_PAYMENT"
	CodeExceedsOriginal     = "EXCEEDS_ORIGINAL"
	CodeRefundExceedsTotal  = "REFUND_EXCEEDS_INVOICE"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeLedgerInconsistency = "LEDGER_INCONSISTENCY"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
)
