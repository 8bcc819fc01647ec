// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"net/http" // status codes

	"github.com/labstack/echo/v4"                   // HTTP framework
	echomw "github.com/labstack/echo/v4/middleware" // panic recovery
	"github.com/redis/go-redis/v9"                  // cache and limiter backend
	"go.opentelemetry.io/otel/trace"                // request spans

	"github.com/iliyamo/cocktail-hub/internal/config"        // cache and limiter settings
	"github.com/iliyamo/cocktail-hub/internal/handler"       // HTTP handlers
	"github.com/iliyamo/cocktail-hub/internal/logger"        // request logging
	"github.com/iliyamo/cocktail-hub/internal/middleware"    // auth, cache, limiter
	"github.com/iliyamo/cocktail-hub/internal/observability" // Prometheus registry
)

// Options carries everything the routes need.  Redis may be nil, which
// disables caching and rate limiting.
type Options struct {
	Handler   *handler.Handler
	JWTSecret string
	Redis     redis.UniversalClient
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Log       *logger.Logger
	Metrics   *observability.Metrics
	Tracer    trace.Tracer
}

// New builds an echo instance with every route registered.
func New(o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// global middleware, outermost first
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(o.Log, o.Metrics))
	if o.Tracer != nil { // tracing is optional
		e.Use(middleware.Tracing(o.Tracer))
	}
	e.Use(middleware.InvalidateOnWrite(o.Cache, o.Redis)) // bumps the cache generation after writes

	// route groups; role checks live on the groups
	RegisterRoutes(e, o.Metrics)
	RegisterAuth(e, o)
	RegisterPublic(e, o)
	RegisterBartender(e, o)
	RegisterCustomer(e, o)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, m *observability.Metrics) {
	e.GET("/healthz", handler.Health)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	} else {
		e.GET("/metrics", func(c echo.Context) error { return c.NoContent(http.StatusNotFound) }) // metrics disabled
	}
}

// limiter returns the per-client token bucket; it passes everything when
// disabled or without Redis.
func (o Options) limiter() echo.MiddlewareFunc {
	return middleware.NewTokenBucket(o.RateLimit, o.Redis, o.Log)
}
