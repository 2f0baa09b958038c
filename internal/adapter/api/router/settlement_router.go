package router

import (
	"splitchain/internal/adapter/api/handler"
	"splitchain/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

// SetupSettlementRouter initializes settlement and bridge-route routes
func SetupSettlementRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter) {
	settlementHandler := handler.GetSettlementHandler()

	settlements := e.Group("/v1")
	settlements.Use(authMiddleware.Authenticate)
	settlements.Use(rateLimiter.RateLimitMiddleware())

	settlements.POST("/groups/:id/settlements", settlementHandler.AddSettlement)
	settlements.POST("/settlements/routes", settlementHandler.GetRouteQuotes)
}
