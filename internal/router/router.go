package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"pwgateway/internal/handler"
	"pwgateway/internal/metrics"
	"pwgateway/internal/middleware"
)

// Setup configures all routes for the Echo server.
func Setup(e *echo.Echo, pw *handler.PaymentwallHandler, logger *zap.Logger) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(metrics.Middleware())

	// Pingback (plain-text protocol responses)
	e.GET("/paymentwall/pingback", pw.IPN)
	e.POST("/paymentwall/pingback", pw.IPN)

	// Legacy single-endpoint dispatcher (?action=ipn|ajax)
	e.Any("/paymentwall", pw.HandleAction)

	// Storefront helpers
	orders := e.Group("/paymentwall/orders")
	orders.Use(middleware.CORS())
	orders.GET("/:id/status", pw.Status)
	orders.GET("/:id/widget", pw.Widget)
	orders.OPTIONS("/:id/status", pw.Status)
	orders.OPTIONS("/:id/widget", pw.Widget)

	// Metrics
	e.GET("/metrics", metrics.Handler())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
