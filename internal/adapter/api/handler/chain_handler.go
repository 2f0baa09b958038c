package handler

import (
	"github.com/labstack/echo/v4"

	"splitchain/internal/domain/entity"
	"splitchain/pkg/response"
)

type ChainHandler struct{}

func NewChainHandler() *ChainHandler {
	return &ChainHandler{}
}

// ListChains returns the supported settlement chains with their USDC
// token addresses.
func (h *ChainHandler) ListChains(c echo.Context) error {
	return response.Success(c, entity.MainnetChains)
}
