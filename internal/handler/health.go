package handler // liveness endpoint

import (
	"net/http" // status codes

	"github.com/labstack/echo/v4" // context helpers
)

// Health answers load balancer probes.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok") // no dependency checks
}
