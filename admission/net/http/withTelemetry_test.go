package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ProveniaLabs/lib-admission/admission"
	"github.com/ProveniaLabs/lib-admission/admission/opentelemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs a recording tracer provider and returns it along
// with its span recorder. The caller restores the previous provider.
func setupTestTracer() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	spanRecorder := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(spanRecorder),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return tracerProvider, spanRecorder
}

func TestWithTelemetry(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		traceparent string
		wantSpan    string
	}{
		{
			name:     "plain path",
			path:     "/api/resource",
			wantSpan: "GET /api/resource",
		},
		{
			name:     "uuid in path is collapsed",
			path:     "/api/users/123e4567-e89b-12d3-a456-426614174000/profile",
			wantSpan: "GET /api/users/:id/profile",
		},
		{
			name:        "incoming trace context is honored",
			path:        "/api/resource",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			wantSpan:    "GET /api/resource",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, spanRecorder := setupTestTracer()
			defer func() {
				_ = tp.Shutdown(context.Background())
			}()

			oldTracerProvider := otel.GetTracerProvider()
			otel.SetTracerProvider(tp)

			defer otel.SetTracerProvider(oldTracerProvider)

			tl := &opentelemetry.Telemetry{LibraryName: "lib-admission"}
			middleware := NewTelemetryMiddleware(tl)

			var sawTracer bool

			app := fiber.New()
			app.Use(middleware.WithTelemetry(tl))
			app.Get("/api/resource", func(c *fiber.Ctx) error {
				sawTracer = admission.NewTracerFromContext(c.UserContext()) != nil

				return c.SendString("OK")
			})
			app.Get("/api/users/:id/profile", func(c *fiber.Ctx) error {
				return c.SendString("OK")
			})

			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.traceparent != "" {
				req.Header.Set("traceparent", tt.traceparent)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			var found sdktrace.ReadOnlySpan

			for _, span := range spanRecorder.Ended() {
				if span.Name() == tt.wantSpan {
					found = span
				}
			}

			require.NotNil(t, found, "expected span %q", tt.wantSpan)

			if tt.traceparent != "" {
				assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", found.SpanContext().TraceID().String())
			}

			if tt.path == "/api/resource" {
				assert.True(t, sawTracer)
			}
		})
	}
}

func TestEndTracingSpans(t *testing.T) {
	tp, spanRecorder := setupTestTracer()
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	tl := &opentelemetry.Telemetry{LibraryName: "lib-admission"}
	middleware := NewTelemetryMiddleware(tl)

	app := fiber.New()
	app.Get("/test", func(c *fiber.Ctx) error {
		ctx, _ := tp.Tracer("test").Start(c.UserContext(), "request-span")
		c.SetUserContext(ctx)

		return c.Next()
	}, middleware.EndTracingSpans, func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// EndTracingSpans closes the span on a goroutine, so poll for it.
	assert.Eventually(t, func() bool {
		for _, span := range spanRecorder.Ended() {
			if span.Name() == "request-span" {
				return true
			}
		}

		return false
	}, time.Second, 10*time.Millisecond)
}

func TestWithTelemetry_ChainsWithLogging(t *testing.T) {
	tp, _ := setupTestTracer()
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	oldTracerProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	defer otel.SetTracerProvider(oldTracerProvider)

	tl := &opentelemetry.Telemetry{LibraryName: "lib-admission"}
	middleware := NewTelemetryMiddleware(tl)

	var (
		gotHeaderID string
		spanValid   bool
	)

	app := fiber.New()
	app.Use(WithHTTPLogging(WithCustomLogger(&recordingLogger{})))
	app.Use(middleware.WithTelemetry(tl))
	app.Get("/test", func(c *fiber.Ctx) error {
		gotHeaderID = admission.NewHeaderIDFromContext(c.UserContext())
		spanValid = trace.SpanFromContext(c.UserContext()).SpanContext().IsValid()

		return c.SendString("OK")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Both middlewares contribute to the same request context.
	assert.NotEmpty(t, gotHeaderID)
	assert.True(t, spanValid)
}
