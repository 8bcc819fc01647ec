// Package handler exposes the domain services over HTTP.  Handlers bind
// and trim input, call one service operation under a request timeout and
// map the service error taxonomy onto status codes.
package handler

import (
	"context"  // request deadlines
	"errors"   // sentinel matching
	"net/http" // status codes
	"time"     // timeout constant

	"github.com/labstack/echo/v4" // context and JSON helpers

	"github.com/iliyamo/cocktail-hub/internal/fanout"     // partial failure details
	"github.com/iliyamo/cocktail-hub/internal/logger"     // 5xx logging
	"github.com/iliyamo/cocktail-hub/internal/middleware" // principal lookup
	"github.com/iliyamo/cocktail-hub/internal/model"      // principal type
	"github.com/iliyamo/cocktail-hub/internal/service"    // domain services and error taxonomy
)

const requestTimeout = 5 * time.Second // per request, covers every store call

// Handler bundles the services behind every route.
type Handler struct {
	svc *service.Services
	log *logger.Logger
}

// New returns a Handler.  A nil log discards output.
func New(svc *service.Services, log *logger.Logger) *Handler {
	if svc == nil {
		panic("handler: nil services") // wiring bug
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log}
}

// requestContext derives the service context from the request.
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// principal returns the authenticated caller or nil.  Services reject a
// nil principal with ErrUnauthorized.
func principal(c echo.Context) model.Principal {
	p, _ := middleware.Principal(c)
	return p
}

// fail writes the JSON error for err.
func (h *Handler) fail(c echo.Context, err error) error {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError { // client errors are not logged
		h.log.Error("request failed", "route", c.Path(), "method", c.Request().Method, "error", err)
	}
	return c.JSON(status, body)
}

// errorResponse maps err to a status and body.  A plan failure only gets
// the partial-write body while committed steps are still applied;
// otherwise the store is unchanged and the cause's own status applies.
func errorResponse(err error) (int, echo.Map) {
	if pf, ok := fanout.AsPartialFailure(err); ok && pf.Dirty() {
		return http.StatusInternalServerError, echo.Map{
			"error":           "write partially applied",
			"event":           pf.Event,
			"failed_step":     pf.FailedStep,
			"committed_steps": committedSteps(pf), // step numbers still applied
			"compensated":     pf.Compensated,
			"rolled_back":     pf.RolledBack,
		}
	}
	switch {
	case errors.Is(err, service.ErrInvalidRating), errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, echo.Map{"error": err.Error()}
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, echo.Map{"error": "invalid credentials"}
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden, echo.Map{"error": err.Error()}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, echo.Map{"error": err.Error()}
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict, echo.Map{"error": err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, echo.Map{"error": "request timed out"}
	}
	return http.StatusInternalServerError, echo.Map{"error": "internal error"} // never leak store errors
}

// committedSteps lists the 1-based numbers of the committed steps.
func committedSteps(pf *fanout.PartialFailure) []int {
	out := make([]int, len(pf.Committed))
	for i, c := range pf.Committed {
		out[i] = c.Index
	}
	return out
}

// badBody answers a request whose body could not be bound.
func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
}
