package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeClient      ErrorType = "client_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// FetchError is a failed listing page request. StatusCode is 0 for
// transport-level failures.
type FetchError struct {
	Page       int
	URL        string
	StatusCode int
	Type       ErrorType
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch page %d: %s (status %d)", e.Page, e.Type, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch page %d: %s: %v", e.Page, e.Type, e.Err)
	}
	return fmt.Sprintf("fetch page %d: %s", e.Page, e.Type)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TransferError is a failed document transfer in a fetch dispatcher
type TransferError struct {
	Filename   string
	URL        string
	StatusCode int
	Type       ErrorType
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transfer %s: %s (status %d)", e.Filename, e.Type, e.StatusCode)
	}
	return fmt.Sprintf("transfer %s: %s: %v", e.Filename, e.Type, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ErrNoURLs is returned when a dispatcher is handed an empty work list
var ErrNoURLs = stderrors.New("no URLs to fetch")

// ClassifyStatus maps an HTTP status code to an ErrorType
func ClassifyStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusNotFound, statusCode == http.StatusGone:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeServerError
	case statusCode >= 400:
		return ErrorTypeClient
	default:
		return ErrorTypeUnknown
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	return IsRetryable(ClassifyStatus(statusCode))
}

// IsRetryableError unwraps FetchError and TransferError and reports whether
// the failure is worth another attempt. Unknown errors are not retried.
func IsRetryableError(err error) bool {
	var fe *FetchError
	if stderrors.As(err, &fe) {
		return IsRetryable(fe.Type)
	}
	var te *TransferError
	if stderrors.As(err, &te) {
		return IsRetryable(te.Type)
	}
	return false
}
