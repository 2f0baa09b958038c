package router

import (
	"splitchain/internal/adapter/api/handler"

	"github.com/labstack/echo/v4"
)

func SetupChainRouter(e *echo.Echo) {
	chainHandler := handler.GetChainHandler()
	e.GET("/v1/chains", chainHandler.ListChains)
}
