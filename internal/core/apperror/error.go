// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"pharmacore/internal/core/types"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Business rule violations (422)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeInvalidState           = "INVALID_STATE"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	CodeCreditLimitExceeded    = "CREDIT_LIMIT_EXCEEDED"
	CodeBelowCostSale          = "BELOW_COST_SALE"
	CodeHasDependentReturns    = "HAS_DEPENDENT_RETURNS"
	CodeOverReturn             = "OVER_RETURN"
	CodePeriodClosed           = "PERIOD_CLOSED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict  = "CONFLICT"
	CodeDuplicate = "DUPLICATE_ENTRY"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInvalidState creates an error for a forbidden lifecycle transition.
func NewInvalidState(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidState,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInsufficientStock creates a stock shortage error.
// Deficit is the quantity that could not be covered by sellable batches.
func NewInsufficientStock(medicineID string, requested, available, deficit types.Quantity) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"medicine_id": medicineID,
			"requested":   requested.Float64(),
			"available":   available.Float64(),
			"deficit":     deficit.Float64(),
		},
	}
}

// NewInsufficientFunds creates a vault balance shortage error.
func NewInsufficientFunds(required, available types.MinorUnits) *AppError {
	return &AppError{
		Code:       CodeInsufficientFunds,
		Message:    "Insufficient funds",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"required":  int64(required),
			"available": int64(available),
			"deficit":   int64(required - available),
		},
	}
}

// NewCreditLimitExceeded creates an error when a credit sale would push a
// customer past their credit limit.
func NewCreditLimitExceeded(customerID string, limit, current, attempted types.MinorUnits) *AppError {
	return &AppError{
		Code:       CodeCreditLimitExceeded,
		Message:    "Credit limit exceeded",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"customer_id": customerID,
			"limit":       int64(limit),
			"current":     int64(current),
			"attempted":   int64(attempted),
			"exceeded_by": int64(current + attempted - limit),
		},
	}
}

// NewBelowCostSale creates an error when a sale price is below batch cost.
func NewBelowCostSale(medicineID string, unitPrice, unitCost types.MinorUnits) *AppError {
	return &AppError{
		Code:       CodeBelowCostSale,
		Message:    "Sale price is below purchase cost",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"medicine_id": medicineID,
			"unit_price":  int64(unitPrice),
			"unit_cost":   int64(unitCost),
		},
	}
}

// NewHasDependentReturns creates an error when a document cannot be reversed
// because non-cancelled returns still reference it.
func NewHasDependentReturns(documentID string) *AppError {
	return &AppError{
		Code:       CodeHasDependentReturns,
		Message:    "Document has dependent returns. Cancel them first.",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"document_id": documentID},
	}
}

// NewOverReturn creates an error when a return exceeds the quantity still
// returnable on the origin line.
func NewOverReturn(lineID string, requested, remaining types.Quantity) *AppError {
	return &AppError{
		Code:       CodeOverReturn,
		Message:    "Return quantity exceeds remaining returnable quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"origin_line_id": lineID,
			"requested":      requested.Float64(),
			"remaining":      remaining.Float64(),
		},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewPeriodClosed creates error when trying to modify closed period
func NewPeriodClosed(period string) *AppError {
	return &AppError{
		Code:       CodePeriodClosed,
		Message:    fmt.Sprintf("Period %s is closed for modifications", period),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"period": period},
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}

// HasCode checks if error carries a specific code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
