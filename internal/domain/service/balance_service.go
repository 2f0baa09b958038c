package service

import (
	"math"

	"splitchain/internal/domain/entity"
)

// settledEpsilon absorbs the floating-point noise introduced by equal-split
// division. Balances within [-settledEpsilon, +settledEpsilon] are treated
// as settled. This is a fixed property of the system, not a display rounding.
const settledEpsilon = 0.01

// BalanceSheet is an address -> net amount mapping that remembers insertion
// order. The simplifier's matching order depends on it, so the order in
// which addresses first appear is significant.
type BalanceSheet struct {
	order   []string
	amounts map[string]float64
}

func NewBalanceSheet() *BalanceSheet {
	return &BalanceSheet{amounts: make(map[string]float64)}
}

// Add applies a delta to the address's net amount, registering the address
// on first touch. Addresses are compared case-insensitively.
func (s *BalanceSheet) Add(address string, delta float64) {
	key := entity.NormalizeAddress(address)
	if _, ok := s.amounts[key]; !ok {
		s.order = append(s.order, key)
	}
	s.amounts[key] += delta
}

// Get returns the net amount for the address, zero if untracked.
func (s *BalanceSheet) Get(address string) float64 {
	return s.amounts[entity.NormalizeAddress(address)]
}

// Addresses returns tracked addresses in insertion order.
func (s *BalanceSheet) Addresses() []string {
	return s.order
}

func (s *BalanceSheet) Len() int {
	return len(s.order)
}

// ComputeBalances derives each participant's net position from the full
// expense ledger. Every listed participant starts at zero; addresses that
// only appear inside expenses are tracked from first touch. For each
// expense the payer is credited the full amount and every member of
// SplitAmong is debited amount/len(SplitAmong); when the payer is also in
// the split, both apply, so they net out owing only their own share.
//
// The result is order-independent across expenses. Nothing is rounded
// during accumulation. An expense with an empty SplitAmong is skipped;
// such expenses are rejected at append time and never reach a stored
// ledger.
func ComputeBalances(expenses []entity.Expense, participants []string) *BalanceSheet {
	sheet := NewBalanceSheet()

	for _, addr := range participants {
		sheet.Add(addr, 0)
	}

	for _, expense := range expenses {
		if len(expense.SplitAmong) == 0 {
			continue
		}
		share := expense.Amount / float64(len(expense.SplitAmong))

		sheet.Add(expense.PaidBy, expense.Amount)
		for _, addr := range expense.SplitAmong {
			sheet.Add(addr, -share)
		}
	}

	return sheet
}

// Transfer is one leg of a settlement plan: From pays To.
type Transfer struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// SimplifyDebts reduces a balance sheet to a small list of pairwise
// transfers that zero every balance to within settledEpsilon.
//
// Debtors and creditors are taken in sheet insertion order, not sorted by
// magnitude, and matched greedily two-pointer style. The plan is at most
// n-1 transfers for n unsettled participants and is stable for a given
// input order; it is not guaranteed to be the theoretical minimum.
//
// Output amounts are rounded to 2 decimal places; the running remainders
// are decremented by the unrounded amount so rounding error cannot
// accumulate across legs.
func SimplifyDebts(sheet *BalanceSheet) []Transfer {
	type position struct {
		address string
		amount  float64
	}

	var debtors, creditors []position
	for _, addr := range sheet.Addresses() {
		amount := sheet.Get(addr)
		switch {
		case amount > settledEpsilon:
			creditors = append(creditors, position{address: addr, amount: amount})
		case amount < -settledEpsilon:
			debtors = append(debtors, position{address: addr, amount: -amount})
		}
	}

	transfers := []Transfer{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := math.Min(debtors[i].amount, creditors[j].amount)

		transfers = append(transfers, Transfer{
			From:   debtors[i].address,
			To:     creditors[j].address,
			Amount: math.Round(amount*100) / 100,
		})

		debtors[i].amount -= amount
		creditors[j].amount -= amount

		if debtors[i].amount < settledEpsilon {
			i++
		}
		if creditors[j].amount < settledEpsilon {
			j++
		}
	}

	return transfers
}
