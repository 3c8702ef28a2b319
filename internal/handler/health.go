package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visitor-tracker/internal/model"
)

// Health reports liveness for load balancers and uptime checks.  It never
// touches the store, so it answers 200 whatever state the data file is in.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResp{
		Success:   true,
		Message:   "Server is running",
		Timestamp: model.FormatTimestamp(time.Now()),
	})
}
