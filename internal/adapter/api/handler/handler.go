package handler

import (
	"splitchain/internal/adapter/api/middleware"
	"splitchain/internal/infrastructure/bridge"
	"splitchain/internal/usecase"
)

var (
	groupHandler      *GroupHandler
	settlementHandler *SettlementHandler
	chainHandler      *ChainHandler
)

func Setup(
	groupUseCase *usecase.GroupUseCase,
	bridgeClient *bridge.Client,
	authMiddleware *middleware.AuthMiddleware,
) {
	groupHandler = NewGroupHandler(groupUseCase, authMiddleware)
	settlementHandler = NewSettlementHandler(groupUseCase, bridgeClient)
	chainHandler = NewChainHandler()
}

func GetGroupHandler() *GroupHandler {
	return groupHandler
}

func GetSettlementHandler() *SettlementHandler {
	return settlementHandler
}

func GetChainHandler() *ChainHandler {
	return chainHandler
}
