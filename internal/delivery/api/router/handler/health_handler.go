package handler

import (
	"net/http"

	"familydir/internal/delivery/api/response"

	"github.com/labstack/echo/v4"
)

// HealthCheck answers liveness probes.
func HealthCheck(c echo.Context) error {
	return response.Text(c, http.StatusOK, "OK")
}
