// Package http provides the JSON API server and its handlers.
//
// This file implements the response builder and the mapping from domain
// errors to HTTP status codes and error bodies.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Error codes carried in the "code" field of error bodies.
const (
	CodeUnauthenticated   = "unauthenticated"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeInvalidAmount     = "invalid_amount"
	CodeInsufficientFunds = "insufficient_funds"
	CodeInvalidState      = "invalid_state"
	CodeInvalidInput      = "invalid_input"
	CodeEmailTaken        = "email_taken"
	CodeWalletNotEmpty    = "wallet_not_empty"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Payload sets the value encoded as the response body.
func (b *JSONResponseBuilder) Payload(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response. 204 responses carry no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent || b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.payload)
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// ErrorResponse builds the standard error body.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Payload(errorBody{Error: errorDetail{Code: code, Message: message}})
}

// classify maps a domain error onto a status code and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthenticated
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusBadRequest, CodeInvalidAmount
	case errors.Is(err, core.ErrInsufficientFunds):
		return http.StatusBadRequest, CodeInsufficientFunds
	case errors.Is(err, core.ErrInvalidState):
		return http.StatusBadRequest, CodeInvalidState
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, core.ErrEmailTaken):
		return http.StatusConflict, CodeEmailTaken
	case errors.Is(err, core.ErrWalletNotEmpty):
		return http.StatusConflict, CodeWalletNotEmpty
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return applog.ErrorTypeAuth
	case http.StatusForbidden:
		return applog.ErrorTypeForbidden
	case http.StatusNotFound:
		return applog.ErrorTypeNotFound
	case http.StatusConflict:
		return applog.ErrorTypeConflict
	case http.StatusBadRequest:
		return applog.ErrorTypeValidation
	default:
		return applog.ErrorTypeInternal
	}
}

// writeError logs err and writes its error body. Internal errors are not
// echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldPath, r.URL.Path,
			applog.FieldErrorType, errorType(status),
			applog.FieldError, err)
		message = "internal server error"
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, status,
			applog.FieldErrorType, errorType(status),
			applog.FieldError, err)
	}
	ErrorResponse(status, code, message).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Payload(v).Write(w)
}
