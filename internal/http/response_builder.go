// Package http provides the JSON API server and its handlers.
//
// This file implements the builder for the API's JSON envelope. Every
// response is a single object carrying a boolean "success" key.

package http

import (
	"encoding/json"
	"net/http"
)

// JSONResponseBuilder provides a fluent API for building envelope responses.
type JSONResponseBuilder struct {
	statusCode int
	fields     map[string]any
	headers    map[string]string
}

// NewJSONResponse creates a successful response with 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		fields:     map[string]any{"success": true},
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Set adds a top-level key to the envelope.
func (b *JSONResponseBuilder) Set(key string, value any) *JSONResponseBuilder {
	b.fields[key] = value
	return b
}

// Message sets the human-readable "message" key.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Set("message", msg)
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.fields)
}

// ErrorResponse creates a failed envelope. error and detail carry the
// same message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Set("success", false).
		Set("error", message).
		Set("detail", message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// ServiceUnavailableError creates a 503 error response.
func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}
