package usecase

import (
	"context"
	"fmt"
	"time"

	"splitchain/internal/domain/entity"
	"splitchain/internal/domain/repository"
	"splitchain/internal/domain/service"
	"splitchain/pkg/errors"
	"splitchain/pkg/logger"
	"splitchain/pkg/utils"
)

// SessionMirror is the state-channel collaborator: expense and payment
// events are mirrored into it for low-latency cross-participant
// notification. Mirroring is best-effort and must never block a store
// write; every method may fail without consequence beyond a log line.
type SessionMirror interface {
	CreateSession(ctx context.Context, groupName, creator string, participants []string, signature string) (string, error)
	JoinSession(ctx context.Context, sessionID, participant, signature string) error
	PublishExpense(ctx context.Context, sessionID string, expense entity.Expense, signature string) error
	SendPayment(ctx context.Context, amount, recipient, sender, signature string) error
	CloseSession(ctx context.Context, sessionID, signature string) error
}

// NameResolver populates display names; never a correctness dependency.
type NameResolver interface {
	ResolveAddress(ctx context.Context, address string) string
}

type GroupUseCase struct {
	groupRepo repository.GroupRepository
	mirror    SessionMirror
	resolver  NameResolver
}

// NewGroupUseCase wires the store with the optional collaborators; mirror
// and resolver may be nil.
func NewGroupUseCase(groupRepo repository.GroupRepository, mirror SessionMirror, resolver NameResolver) *GroupUseCase {
	return &GroupUseCase{
		groupRepo: groupRepo,
		mirror:    mirror,
		resolver:  resolver,
	}
}

type CreateGroupInput struct {
	Name            string
	CreatedBy       string
	PreferredChains []int64
	Signature       string
}

type JoinGroupInput struct {
	Address         string
	PreferredChains []int64
	Signature       string
}

type AddExpenseInput struct {
	Amount      float64
	Description string
	PaidBy      string
	SplitAmong  []string
	Currency    string
	Signature   string
}

type AddSettlementInput struct {
	From      string
	To        string
	Amount    float64
	Currency  string
	FromChain int64
	ToChain   int64
	Status    string
	TxHash    string
	Signature string
}

// BalanceSummary is the computed view of a group ledger: every net
// position plus the settlement plan that zeroes them.
type BalanceSummary struct {
	Balances  []entity.Balance   `json:"balances"`
	Transfers []service.Transfer `json:"transfers"`
}

func (uc *GroupUseCase) CreateGroup(ctx context.Context, input CreateGroupInput) (*entity.Group, error) {
	if input.Name == "" {
		return nil, errors.BadRequest("Group name is required", nil)
	}
	if !entity.IsValidAddress(input.CreatedBy) {
		return nil, errors.BadRequest("Invalid creator address", nil)
	}

	creator := entity.NormalizeAddress(input.CreatedBy)
	group := &entity.Group{
		ID:        utils.NewID(),
		Name:      input.Name,
		CreatedBy: creator,
		CreatedAt: time.Now().UnixMilli(),
		IsActive:  true,
		Participants: []entity.Participant{{
			Address:         creator,
			EnsName:         uc.resolveName(ctx, creator),
			PreferredChains: input.PreferredChains,
		}},
		Expenses:    []entity.Expense{},
		Settlements: []entity.Settlement{},
	}

	if uc.mirror != nil {
		sessionID, err := uc.mirror.CreateSession(ctx, group.Name, creator, nil, input.Signature)
		if err != nil {
			logger.Warn("Session mirror unavailable for new group %s: %v", group.ID, err)
		} else {
			group.ClearnodeSessionID = sessionID
		}
	}

	if err := uc.groupRepo.SaveGroup(ctx, group); err != nil {
		return nil, errors.Internal("Failed to save group", err)
	}
	logger.Info("Created group %s (%s)", group.ID, group.Name)
	return group, nil
}

func (uc *GroupUseCase) JoinGroup(ctx context.Context, groupID string, input JoinGroupInput) (*entity.Group, error) {
	if !entity.IsValidAddress(input.Address) {
		return nil, errors.BadRequest("Invalid participant address", nil)
	}

	group, err := uc.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	address := entity.NormalizeAddress(input.Address)
	participant := entity.Participant{
		Address:         address,
		EnsName:         uc.resolveName(ctx, address),
		PreferredChains: input.PreferredChains,
	}
	if err := uc.groupRepo.AddParticipant(ctx, groupID, participant); err != nil {
		return nil, errors.Internal("Failed to add participant", err)
	}

	if uc.mirror != nil && group.ClearnodeSessionID != "" {
		if err := uc.mirror.JoinSession(ctx, group.ClearnodeSessionID, address, input.Signature); err != nil {
			logger.Warn("Session mirror join failed for group %s: %v", groupID, err)
		}
	}

	return uc.getGroup(ctx, groupID)
}

func (uc *GroupUseCase) AddExpense(ctx context.Context, groupID string, input AddExpenseInput) (*entity.Expense, error) {
	if input.Amount < 0 {
		return nil, errors.BadRequest("Expense amount cannot be negative", nil)
	}
	if len(input.SplitAmong) == 0 {
		// An empty split would divide by zero downstream; rejected here
		// so it can never reach a stored ledger.
		return nil, errors.BadRequest("Expense must be split among at least one participant", nil)
	}
	if !entity.IsValidAddress(input.PaidBy) {
		return nil, errors.BadRequest("Invalid payer address", nil)
	}
	splitAmong := make([]string, len(input.SplitAmong))
	for i, address := range input.SplitAmong {
		if !entity.IsValidAddress(address) {
			return nil, errors.BadRequest(fmt.Sprintf("Invalid address in split: %s", address), nil)
		}
		splitAmong[i] = entity.NormalizeAddress(address)
	}

	group, err := uc.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = "USDC"
	}
	expense := entity.Expense{
		ID:          utils.NewID(),
		Amount:      input.Amount,
		Description: input.Description,
		PaidBy:      entity.NormalizeAddress(input.PaidBy),
		SplitAmong:  splitAmong,
		Currency:    currency,
		Timestamp:   time.Now().UnixMilli(),
	}

	if err := uc.groupRepo.AddExpense(ctx, groupID, expense); err != nil {
		return nil, errors.Internal("Failed to add expense", err)
	}

	if uc.mirror != nil && group.ClearnodeSessionID != "" {
		if err := uc.mirror.PublishExpense(ctx, group.ClearnodeSessionID, expense, input.Signature); err != nil {
			logger.Warn("Session mirror publish failed for group %s: %v", groupID, err)
		}
	}

	return &expense, nil
}

func (uc *GroupUseCase) AddSettlement(ctx context.Context, groupID string, input AddSettlementInput) (*entity.Settlement, error) {
	if !entity.IsValidAddress(input.From) || !entity.IsValidAddress(input.To) {
		return nil, errors.BadRequest("Invalid settlement address", nil)
	}
	if input.Amount <= 0 {
		return nil, errors.BadRequest("Settlement amount must be positive", nil)
	}

	group, err := uc.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = entity.SettlementPending
	}
	currency := input.Currency
	if currency == "" {
		currency = "USDC"
	}
	settlement := entity.Settlement{
		ID:        utils.NewID(),
		From:      entity.NormalizeAddress(input.From),
		To:        entity.NormalizeAddress(input.To),
		Amount:    input.Amount,
		Currency:  currency,
		FromChain: input.FromChain,
		ToChain:   input.ToChain,
		Status:    status,
		TxHash:    input.TxHash,
		Timestamp: time.Now().UnixMilli(),
	}

	if err := uc.groupRepo.AddSettlement(ctx, groupID, settlement); err != nil {
		return nil, errors.Internal("Failed to add settlement", err)
	}

	logger.Info("Recorded settlement %s -> %s of %s in group %s",
		utils.FormatAddress(settlement.From, 4), utils.FormatAddress(settlement.To, 4),
		utils.FormatCurrency(settlement.Amount, settlement.Currency), groupID)

	if uc.mirror != nil && group.ClearnodeSessionID != "" {
		amount := fmt.Sprintf("%.2f", settlement.Amount)
		if err := uc.mirror.SendPayment(ctx, amount, settlement.To, settlement.From, input.Signature); err != nil {
			logger.Warn("Session mirror payment failed for group %s: %v", groupID, err)
		}
	}

	return &settlement, nil
}

// GroupBalances recomputes every participant's net position from the full
// expense ledger and derives the settlement plan.
func (uc *GroupUseCase) GroupBalances(ctx context.Context, groupID string) (*BalanceSummary, error) {
	group, err := uc.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	addresses := make([]string, len(group.Participants))
	ensNames := make(map[string]string, len(group.Participants))
	for i, p := range group.Participants {
		addresses[i] = entity.NormalizeAddress(p.Address)
		ensNames[addresses[i]] = p.EnsName
	}

	sheet := service.ComputeBalances(group.Expenses, addresses)

	balances := make([]entity.Balance, 0, sheet.Len())
	for _, address := range sheet.Addresses() {
		balances = append(balances, entity.Balance{
			Address:   address,
			EnsName:   ensNames[address],
			NetAmount: sheet.Get(address),
			Currency:  "USDC",
		})
	}

	return &BalanceSummary{
		Balances:  balances,
		Transfers: service.SimplifyDebts(sheet),
	}, nil
}

func (uc *GroupUseCase) GetGroup(ctx context.Context, groupID string) (*entity.Group, error) {
	return uc.getGroup(ctx, groupID)
}

// ListGroupsFor returns every group the address participates in or created.
func (uc *GroupUseCase) ListGroupsFor(ctx context.Context, address string) ([]entity.Group, error) {
	groups, err := uc.groupRepo.GetAllGroups(ctx)
	if err != nil {
		return nil, errors.Internal("Failed to list groups", err)
	}

	member := []entity.Group{}
	for _, g := range groups {
		if g.HasParticipant(address) || entity.SameAddress(g.CreatedBy, address) {
			member = append(member, g)
		}
	}
	return member, nil
}

func (uc *GroupUseCase) SetGroupStatus(ctx context.Context, groupID string, isActive bool) error {
	group, err := uc.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := uc.groupRepo.UpdateGroupStatus(ctx, groupID, isActive); err != nil {
		return errors.Internal("Failed to update group status", err)
	}

	// Deactivating a group retires its mirror session.
	if !isActive && uc.mirror != nil && group.ClearnodeSessionID != "" {
		if err := uc.mirror.CloseSession(ctx, group.ClearnodeSessionID, ""); err != nil {
			logger.Warn("Session mirror close failed for group %s: %v", groupID, err)
		}
	}
	return nil
}

func (uc *GroupUseCase) DeleteGroup(ctx context.Context, groupID string) error {
	if err := uc.groupRepo.DeleteGroup(ctx, groupID); err != nil {
		return errors.Internal("Failed to delete group", err)
	}
	return nil
}

// SubscribeToGroup exposes the store subscription to transports.
func (uc *GroupUseCase) SubscribeToGroup(ctx context.Context, groupID string, fn func(*entity.Group)) (func(), error) {
	return uc.groupRepo.SubscribeToGroup(ctx, groupID, fn)
}

func (uc *GroupUseCase) getGroup(ctx context.Context, groupID string) (*entity.Group, error) {
	group, err := uc.groupRepo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, errors.Internal("Failed to load group", err)
	}
	if group == nil {
		return nil, errors.NotFound("Group", nil)
	}
	return group, nil
}

func (uc *GroupUseCase) resolveName(ctx context.Context, address string) string {
	if uc.resolver == nil {
		return ""
	}
	return uc.resolver.ResolveAddress(ctx, address)
}
