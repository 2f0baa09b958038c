package router

import (
	"splitchain/internal/adapter/api/handler"
	"splitchain/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

// SetupGroupRouter initializes group lifecycle and ledger routes
func SetupGroupRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter) {
	groupHandler := handler.GetGroupHandler()

	// Websocket subscription authenticates via query param, not header
	e.GET("/v1/groups/:id/subscribe", groupHandler.Subscribe)

	groups := e.Group("/v1/groups")
	groups.Use(authMiddleware.Authenticate)
	groups.Use(rateLimiter.RateLimitMiddleware())

	groups.POST("", groupHandler.CreateGroup)
	groups.GET("", groupHandler.ListGroups)
	groups.GET("/:id", groupHandler.GetGroup)
	groups.POST("/:id/join", groupHandler.JoinGroup)
	groups.PATCH("/:id/status", groupHandler.UpdateGroupStatus)
	groups.DELETE("/:id", groupHandler.DeleteGroup)
	groups.POST("/:id/expenses", groupHandler.AddExpense)
	groups.GET("/:id/balances", groupHandler.GetBalances)
}
