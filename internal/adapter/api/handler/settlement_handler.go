package handler

import (
	"github.com/labstack/echo/v4"

	"splitchain/internal/adapter/api/middleware"
	"splitchain/internal/domain/entity"
	"splitchain/internal/infrastructure/bridge"
	"splitchain/internal/usecase"
	"splitchain/pkg/errors"
	"splitchain/pkg/response"
)

type SettlementHandler struct {
	groupUseCase *usecase.GroupUseCase
	bridgeClient *bridge.Client
}

func NewSettlementHandler(groupUseCase *usecase.GroupUseCase, bridgeClient *bridge.Client) *SettlementHandler {
	return &SettlementHandler{
		groupUseCase: groupUseCase,
		bridgeClient: bridgeClient,
	}
}

type addSettlementRequest struct {
	To        string  `json:"to" validate:"required,wallet_addr"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Currency  string  `json:"currency"`
	FromChain int64   `json:"fromChain" validate:"required"`
	ToChain   int64   `json:"toChain" validate:"required"`
	Status    string  `json:"status" validate:"omitempty,oneof=pending processing completed failed"`
	TxHash    string  `json:"txHash"`
	Signature string  `json:"signature"`
}

type routeQuoteRequest struct {
	FromChain   int64  `json:"fromChain" validate:"required"`
	ToChain     int64  `json:"toChain" validate:"required"`
	FromAmount  string `json:"fromAmount" validate:"required"`
	FromAddress string `json:"fromAddress" validate:"required,wallet_addr"`
	ToAddress   string `json:"toAddress" validate:"required,wallet_addr"`
}

func (h *SettlementHandler) AddSettlement(c echo.Context) error {
	var req addSettlementRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	settlement, err := h.groupUseCase.AddSettlement(c.Request().Context(), c.Param("id"), usecase.AddSettlementInput{
		From:      middleware.AddressFromContext(c),
		To:        req.To,
		Amount:    req.Amount,
		Currency:  req.Currency,
		FromChain: req.FromChain,
		ToChain:   req.ToChain,
		Status:    req.Status,
		TxHash:    req.TxHash,
		Signature: req.Signature,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, settlement)
}

// GetRouteQuotes asks the bridge aggregator for USDC routes between the
// debtor's and creditor's chains.
func (h *SettlementHandler) GetRouteQuotes(c echo.Context) error {
	var req routeQuoteRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	fromChain, ok := entity.ChainByID(req.FromChain)
	if !ok {
		return response.Error(c, errors.BadRequest("Unsupported source chain", nil))
	}
	toChain, ok := entity.ChainByID(req.ToChain)
	if !ok {
		return response.Error(c, errors.BadRequest("Unsupported destination chain", nil))
	}

	quotes, err := h.bridgeClient.GetRoutes(c.Request().Context(), bridge.RouteRequest{
		FromChain:   req.FromChain,
		ToChain:     req.ToChain,
		FromToken:   fromChain.USDC,
		ToToken:     toChain.USDC,
		FromAmount:  req.FromAmount,
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, quotes)
}
