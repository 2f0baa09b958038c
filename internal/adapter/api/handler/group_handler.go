package handler

import (
	"net/http"
	"sync"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"splitchain/internal/adapter/api/middleware"
	"splitchain/internal/domain/entity"
	"splitchain/internal/usecase"
	"splitchain/pkg/errors"
	"splitchain/pkg/logger"
	"splitchain/pkg/response"
	"splitchain/pkg/utils"
)

type GroupHandler struct {
	groupUseCase   *usecase.GroupUseCase
	authMiddleware *middleware.AuthMiddleware
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // You should restrict this in production
	},
}

func NewGroupHandler(groupUseCase *usecase.GroupUseCase, authMiddleware *middleware.AuthMiddleware) *GroupHandler {
	return &GroupHandler{
		groupUseCase:   groupUseCase,
		authMiddleware: authMiddleware,
	}
}

type createGroupRequest struct {
	Name            string  `json:"name" validate:"required"`
	PreferredChains []int64 `json:"preferredChains"`
	Signature       string  `json:"signature"`
}

type joinGroupRequest struct {
	PreferredChains []int64 `json:"preferredChains"`
	Signature       string  `json:"signature"`
}

type addExpenseRequest struct {
	Amount      float64  `json:"amount" validate:"gte=0"`
	Description string   `json:"description"`
	PaidBy      string   `json:"paidBy" validate:"required,wallet_addr"`
	SplitAmong  []string `json:"splitAmong" validate:"min=1,dive,wallet_addr"`
	Currency    string   `json:"currency"`
	Signature   string   `json:"signature"`
}

type updateStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func (h *GroupHandler) CreateGroup(c echo.Context) error {
	var req createGroupRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.CreateGroup(c.Request().Context(), usecase.CreateGroupInput{
		Name:            req.Name,
		CreatedBy:       middleware.AddressFromContext(c),
		PreferredChains: req.PreferredChains,
		Signature:       req.Signature,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, group)
}

func (h *GroupHandler) ListGroups(c echo.Context) error {
	groups, err := h.groupUseCase.ListGroupsFor(c.Request().Context(), middleware.AddressFromContext(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, groups)
}

func (h *GroupHandler) GetGroup(c echo.Context) error {
	group, err := h.groupUseCase.GetGroup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, group)
}

func (h *GroupHandler) JoinGroup(c echo.Context) error {
	var req joinGroupRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.JoinGroup(c.Request().Context(), c.Param("id"), usecase.JoinGroupInput{
		Address:         middleware.AddressFromContext(c),
		PreferredChains: req.PreferredChains,
		Signature:       req.Signature,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, group)
}

func (h *GroupHandler) UpdateGroupStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if err := h.groupUseCase.SetGroupStatus(c.Request().Context(), c.Param("id"), *req.IsActive); err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.GetGroup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, group)
}

func (h *GroupHandler) DeleteGroup(c echo.Context) error {
	if err := h.groupUseCase.DeleteGroup(c.Request().Context(), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "deleted"})
}

func (h *GroupHandler) AddExpense(c echo.Context) error {
	var req addExpenseRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	expense, err := h.groupUseCase.AddExpense(c.Request().Context(), c.Param("id"), usecase.AddExpenseInput{
		Amount:      req.Amount,
		Description: req.Description,
		PaidBy:      req.PaidBy,
		SplitAmong:  req.SplitAmong,
		Currency:    req.Currency,
		Signature:   req.Signature,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, expense)
}

func (h *GroupHandler) GetBalances(c echo.Context) error {
	summary, err := h.groupUseCase.GroupBalances(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, summary)
}

// Subscribe streams every change to a group over a websocket. Browsers
// cannot set an Authorization header on the upgrade request, so the
// token travels as a query parameter.
func (h *GroupHandler) Subscribe(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return errors.Unauthorized("Authentication required", nil)
	}

	address, err := h.authMiddleware.ResolveToken(c.Request().Context(), token)
	if err != nil {
		return errors.Unauthorized("Invalid token", err)
	}

	groupID := c.Param("id")
	group, err := h.groupUseCase.GetGroup(c.Request().Context(), groupID)
	if err != nil {
		return err
	}
	if !group.HasParticipant(address) && !entity.SameAddress(group.CreatedBy, address) {
		return errors.Unauthorized("Not a member of this group", nil)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	writeGroup := func(g *entity.Group) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if g == nil {
			return conn.WriteJSON(map[string]interface{}{"type": "deleted", "groupId": groupID})
		}
		return conn.WriteJSON(map[string]interface{}{"type": "update", "group": g})
	}

	closed := make(chan struct{})
	var closeOnce sync.Once

	cancel, err := h.groupUseCase.SubscribeToGroup(c.Request().Context(), groupID, func(g *entity.Group) {
		if err := writeGroup(g); err != nil {
			closeOnce.Do(func() { close(closed) })
		}
	})
	if err != nil {
		return errors.Internal("Failed to subscribe to group", err)
	}
	defer cancel()

	logger.Debug("Websocket subscriber %s attached to group %s", utils.FormatAddress(address, 4), groupID)

	// Drain the connection so pings are answered and the peer closing
	// tears the subscription down.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeOnce.Do(func() { close(closed) })
				return
			}
		}
	}()

	<-closed
	return nil
}
