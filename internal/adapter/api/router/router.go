package router

import (
	"splitchain/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter) {
	SetupGroupRouter(e, authMiddleware, rateLimiter)
	SetupSettlementRouter(e, authMiddleware, rateLimiter)
	SetupChainRouter(e)
	SetupHealthRouter(e)
}
