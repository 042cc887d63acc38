// Package errors defines the coded errors tattva returns across package
// boundaries and how they map onto HTTP responses.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Error codes.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeRateLimited    = "RATE_LIMITED"

	CodeInternal    = "INTERNAL_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
	CodeDataAccess  = "DATA_ACCESS_ERROR"
	CodeBus         = "BUS_ERROR"
)

// statusByCode maps codes to HTTP statuses; unknown codes are 500.
var statusByCode = map[string]int{
	CodeValidation:     http.StatusBadRequest,
	CodeInvalidRequest: http.StatusBadRequest,
	CodeRateLimited:    http.StatusTooManyRequests,
	CodeUnavailable:    http.StatusServiceUnavailable,
	CodeDataAccess:     http.StatusServiceUnavailable,
	CodeTimeout:        http.StatusGatewayTimeout,
}

// AppError is an error carrying a stable code, a client-safe message and
// optionally the underlying cause.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus returns the response status for the error's code.
func (e *AppError) HTTPStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithDetail attaches a key/value pair that is echoed to clients.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string, 1)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError without a cause.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError around err.
func Wrap(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// ValidationError reports bad input to a domain operation.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// InvalidRequestError reports a malformed HTTP request.
func InvalidRequestError(message string) *AppError {
	return New(CodeInvalidRequest, message)
}

// DataAccessError marks a failure talking to the observation store.
func DataAccessError(message string, err error) *AppError {
	return Wrap(CodeDataAccess, message, err)
}

// RateLimitedError tells the client to back off for retryAfterSeconds.
func RateLimitedError(retryAfterSeconds int) *AppError {
	err := New(CodeRateLimited, "rate limit exceeded")
	if retryAfterSeconds > 0 {
		err.WithDetail("retry_after", strconv.Itoa(retryAfterSeconds))
	}
	return err
}

// ServiceUnavailableError reports that a dependency is down.
func ServiceUnavailableError(service string) *AppError {
	if service == "" {
		return New(CodeUnavailable, "service unavailable")
	}
	return New(CodeUnavailable, service+" is unavailable")
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsValidation reports whether err carries CodeValidation.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsDataAccess reports whether err came from the observation store.
func IsDataAccess(err error) bool { return CodeOf(err) == CodeDataAccess }

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes resp with status.
func WriteJSON(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteError writes err as an ErrorResponse. AppErrors keep their code and
// message; the wrapped cause and any non-AppError text are never sent.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal server error",
			Code:    CodeInternal,
			Message: "An unexpected error occurred",
		})
		return
	}
	WriteJSON(w, appErr.HTTPStatus(), ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}
