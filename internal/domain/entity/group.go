package entity

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Settlement status values. A status is recorded once known; there is no
// enforced transition table. A retry is a new Settlement record.
const (
	SettlementPending    = "pending"
	SettlementProcessing = "processing"
	SettlementCompleted  = "completed"
	SettlementFailed     = "failed"
)

// Participant is a group member identified by wallet address. EnsName and
// EnsAvatar are display-only and never used as join keys.
type Participant struct {
	Address         string  `json:"address" firestore:"address"`
	EnsName         string  `json:"ensName,omitempty" firestore:"ensName,omitempty"`
	EnsAvatar       string  `json:"ensAvatar,omitempty" firestore:"ensAvatar,omitempty"`
	PreferredChains []int64 `json:"preferredChains,omitempty" firestore:"preferredChains,omitempty"`
}

// Expense is a recorded outlay paid by one participant and split equally
// among SplitAmong. Expenses are immutable once appended.
type Expense struct {
	ID          string   `json:"id" firestore:"id"`
	Amount      float64  `json:"amount" firestore:"amount"`
	Description string   `json:"description" firestore:"description"`
	PaidBy      string   `json:"paidBy" firestore:"paidBy"`
	PaidByEns   string   `json:"paidByEns,omitempty" firestore:"paidByEns,omitempty"`
	SplitAmong  []string `json:"splitAmong" firestore:"splitAmong"`
	Currency    string   `json:"currency" firestore:"currency"`
	Timestamp   int64    `json:"timestamp" firestore:"timestamp"` // unix millis
}

// Settlement is a recorded external transfer intended to reduce one
// participant's debt to another. Never mutated in place.
type Settlement struct {
	ID        string  `json:"id" firestore:"id"`
	From      string  `json:"from" firestore:"from"`
	To        string  `json:"to" firestore:"to"`
	Amount    float64 `json:"amount" firestore:"amount"`
	Currency  string  `json:"currency" firestore:"currency"`
	FromChain int64   `json:"fromChain,omitempty" firestore:"fromChain,omitempty"`
	ToChain   int64   `json:"toChain,omitempty" firestore:"toChain,omitempty"`
	Status    string  `json:"status" firestore:"status"`
	TxHash    string  `json:"txHash,omitempty" firestore:"txHash,omitempty"`
	Timestamp int64   `json:"timestamp" firestore:"timestamp"`
}

// Group is the aggregate root: one expense-splitting session. Participants,
// expenses and settlements only grow; every mutation is a whole-document
// read-modify-write followed by a full overwrite.
type Group struct {
	ID                 string        `json:"id" firestore:"id"`
	Name               string        `json:"name" firestore:"name"`
	CreatedBy          string        `json:"createdBy" firestore:"createdBy"`
	CreatedAt          int64         `json:"createdAt" firestore:"createdAt"`
	UpdatedAt          int64         `json:"updatedAt" firestore:"updatedAt"`
	Participants       []Participant `json:"participants" firestore:"participants"`
	Expenses           []Expense     `json:"expenses" firestore:"expenses"`
	Settlements        []Settlement  `json:"settlements" firestore:"settlements"`
	IsActive           bool          `json:"isActive" firestore:"isActive"`
	ClearnodeSessionID string        `json:"clearnodeSessionId,omitempty" firestore:"clearnodeSessionId,omitempty"`
}

// Balance is a participant's net position: positive means they are owed
// money, negative means they owe.
type Balance struct {
	Address   string  `json:"address"`
	EnsName   string  `json:"ensName,omitempty"`
	NetAmount float64 `json:"netAmount"`
	Currency  string  `json:"currency"`
}

// IsValidAddress reports whether value is a 0x-prefixed 20-byte hex address.
func IsValidAddress(value string) bool {
	return strings.HasPrefix(value, "0x") && common.IsHexAddress(value)
}

// NormalizeAddress lower-cases an address so it can be used as a lookup key.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// SameAddress compares two addresses case-insensitively. Two addresses
// identify the same participant iff their lower-cased forms are equal.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

// HasParticipant reports whether the group already contains the address,
// compared case-insensitively.
func (g *Group) HasParticipant(address string) bool {
	for _, p := range g.Participants {
		if SameAddress(p.Address, address) {
			return true
		}
	}
	return false
}
