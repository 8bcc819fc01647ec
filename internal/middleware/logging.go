package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/cocktail-hub/internal/logger"
	"github.com/iliyamo/cocktail-hub/internal/observability"
)

// Tracing opens a server span per request, named after the route pattern.
func Tracing(tracer trace.Tracer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, span := tracer.Start(req.Context(), req.Method+" "+c.Path(),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.route", c.Path()),
				))
			defer span.End()
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= 500 {
				span.SetStatus(codes.Error, "server error")
			}
			return err
		}
	}
}

// RequestLogger writes one structured line per request and records the
// HTTP metrics.
func RequestLogger(log *logger.Logger, m *observability.Metrics) echo.MiddlewareFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo render the error so the status below is final.
				c.Error(err)
			}
			dur := time.Since(start)
			req := c.Request()
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(req.Method, route, status, dur)

			kv := []interface{}{
				"method", req.Method,
				"route", route,
				"status", status,
				"latency_ms", dur.Milliseconds(),
				"ip", c.RealIP(),
				"user_id", userID(c),
			}
			if tid := observability.TraceID(req.Context()); tid != "" {
				kv = append(kv, "trace_id", tid)
			}
			switch {
			case status >= 500:
				log.Error("request", append(kv, "error", err)...)
			case status >= 400:
				log.Warn("request", kv...)
			default:
				log.Info("request", kv...)
			}
			return nil
		}
	}
}
