// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

var untracedPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// TelemetryMiddleware traces every request except health checks and scrapes.
func TelemetryMiddleware(service string) gin.HandlerFunc {
	return otelgin.Middleware(service, otelgin.WithFilter(func(r *http.Request) bool {
		return !untracedPaths[r.URL.Path]
	}))
}

// RequestID propagates the caller's X-Request-ID or assigns a new one, and
// marks the active span as failed on server errors.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		AddSpanAttribute(c, "http.request_id", id)

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span := trace.SpanFromContext(c.Request.Context())
			if span.IsRecording() {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			}
		}
	}
}

// GetRequestID returns the ID assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RecordError records an error on the current span
func RecordError(c *gin.Context, err error, description string) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, description)
	}
}

// AddSpanAttribute adds an attribute to the current span
func AddSpanAttribute(c *gin.Context, key string, value interface{}) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	default:
		span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", value)))
	}
}
