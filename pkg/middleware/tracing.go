package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds tracing middleware configuration
type TracingConfig struct {
	ServiceName string
	SkipPaths   []string
	Propagators propagation.TextMapPropagator
	TracerName  string
}

// DefaultTracingConfig returns default tracing configuration
func DefaultTracingConfig(serviceName string) *TracingConfig {
	return &TracingConfig{
		ServiceName: serviceName,
		SkipPaths:   []string{"/health", "/ready", "/metrics"},
		Propagators: otel.GetTextMapPropagator(),
		TracerName:  serviceName,
	}
}

// TracingMiddleware opens a server span per request, propagating any trace
// context carried in the incoming headers. The trace and span IDs are set on
// the Gin context for the request logger.
func TracingMiddleware(config *TracingConfig) gin.HandlerFunc {
	tracer := otel.Tracer(config.TracerName)
	skipMap := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		ctx := config.Propagators.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		spanName := fmt.Sprintf("%s %s", c.Request.Method, path)

		ctx, span := tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(c.Request.Method),
				semconv.HTTPRouteKey.String(path),
				semconv.HTTPURLKey.String(c.Request.URL.String()),
				attribute.String("http.client_ip", c.ClientIP()),
				attribute.String("service.name", config.ServiceName),
			),
		)
		defer span.End()

		if requestID, exists := c.Get(ContextKeyRequestID); exists {
			span.SetAttributes(attribute.String("request.id", requestID.(string)))
		}
		if correlationID, exists := c.Get(ContextKeyCorrelationID); exists {
			span.SetAttributes(attribute.String("correlation.id", correlationID.(string)))
		}

		c.Set("traceId", span.SpanContext().TraceID().String())
		c.Set("spanId", span.SpanContext().SpanID().String())

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))
		if status >= 400 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		} else {
			span.SetStatus(codes.Ok, "")
		}

		for _, ginErr := range c.Errors {
			span.RecordError(ginErr.Err)
		}
	}
}

// SpanFromGinContext extracts the current span from a Gin context
func SpanFromGinContext(c *gin.Context) trace.Span {
	return trace.SpanFromContext(c.Request.Context())
}
