package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the load-balancer probe. It reports process liveness only; it
// does not touch the database or broker.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
