// Package apperr provides the error taxonomy shared by the valuation core and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized internal error code.
type ErrorCode string

const (
	CodeInvalidAmount         ErrorCode = "INVALID_AMOUNT"
	CodeMarketDataUnavailable ErrorCode = "MARKET_DATA_UNAVAILABLE"
	CodeServiceUnavailable    ErrorCode = "SERVICE_UNAVAILABLE"
	CodeRateLimited           ErrorCode = "RATE_LIMITED"
	CodeInvalidRequest        ErrorCode = "INVALID_REQUEST"
	CodeInternal              ErrorCode = "INTERNAL"
)

// StandardError is a structured application error. Message is safe to show to users.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Hint      string    `json:"hint,omitempty"`
	Retryable bool      `json:"retryable"`
	Err       error     `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.Err }

// Is matches any StandardError carrying the same code.
func (e *StandardError) Is(target error) bool {
	var t *StandardError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidAmount         = &StandardError{Code: CodeInvalidAmount}
	ErrMarketDataUnavailable = &StandardError{Code: CodeMarketDataUnavailable}
	ErrServiceUnavailable    = &StandardError{Code: CodeServiceUnavailable}
	ErrRateLimited           = &StandardError{Code: CodeRateLimited}
	ErrInvalidRequest        = &StandardError{Code: CodeInvalidRequest}
)

// AmountFormatHint is the single message shown for every malformed amount.
const AmountFormatHint = "Enter a valid amount (supports k/L/Cr)"

func InvalidAmount(input string) *StandardError {
	return &StandardError{
		Code:    CodeInvalidAmount,
		Message: AmountFormatHint,
		Err:     fmt.Errorf("unparseable amount %q", input),
	}
}

func MarketDataUnavailable(cause error) *StandardError {
	return &StandardError{
		Code:      CodeMarketDataUnavailable,
		Message:   "Unable to fetch current market data. Please try again.",
		Retryable: true,
		Err:       cause,
	}
}

func ServiceUnavailable(cause error) *StandardError {
	return &StandardError{
		Code:    CodeServiceUnavailable,
		Message: "AI service unavailable",
		Hint:    "Please contact support",
		Err:     cause,
	}
}

func RateLimited() *StandardError {
	return &StandardError{
		Code:      CodeRateLimited,
		Message:   "Rate limit exceeded",
		Hint:      "Please wait a minute before trying again",
		Retryable: true,
	}
}

func InvalidRequest(message string, cause error) *StandardError {
	return &StandardError{Code: CodeInvalidRequest, Message: message, Err: cause}
}

func Internal(message string, cause error) *StandardError {
	return &StandardError{
		Code:    CodeInternal,
		Message: message,
		Hint:    "Please check your inputs and try again",
		Err:     cause,
	}
}

// CodeOf returns the code of the first StandardError in err's chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error to the status code used at the transport boundary.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidAmount, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
