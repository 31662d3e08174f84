// Package http serves the cost tracker over JSON. Notifications ride along
// in an HX-Trigger header so an htmx front end can show them as toasts.
package http

import (
	"encoding/json"
	"net/http"

	"costtracker/internal/notify"
)

// ResponseBuilder provides a fluent API for building responses with
// HX-Trigger events.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerStateChanged tells the client to refetch /api/state.
func (b *ResponseBuilder) TriggerStateChanged(collection string) *ResponseBuilder {
	return b.Trigger("state:changed", map[string]string{"collection": collection})
}

// TriggerNotification adds a show-notification event.
func (b *ResponseBuilder) TriggerNotification(n notify.Notification) *ResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(n.Status),
		"title":    n.Title,
		"message":  n.Description,
		"duration": n.DurationMillis(),
	})
}

// TriggerLastNotification forwards the most recent collected notification.
func (b *ResponseBuilder) TriggerLastNotification(c *notify.Collector) *ResponseBuilder {
	if n, ok := c.Last(); ok {
		b.TriggerNotification(n)
	}
	return b
}

func (b *ResponseBuilder) TriggerErrorNotification(message string) *ResponseBuilder {
	return b.TriggerNotification(notify.Notification{
		Title:       "Error",
		Description: message,
		Status:      notify.StatusError,
		Duration:    notify.ErrorDuration,
	})
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	body, err := json.Marshal(v)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		body = []byte(`{"error":"encode response"}`)
	}
	b.headers["Content-Type"] = "application/json"
	b.body = body
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// ErrorResponse creates a JSON error body.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}
