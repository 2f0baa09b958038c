package repository

import (
	"time"

	"splitchain/internal/domain/entity"
)

// normalizeGroup deep-normalizes a group document before it is written.
// Nil slices marshal as null and the remote store rejects null where the
// document contract expects an array, so every array field is forced to an
// empty slice. Order inside the arrays is never touched.
func normalizeGroup(group *entity.Group) {
	if group.Participants == nil {
		group.Participants = []entity.Participant{}
	}
	if group.Expenses == nil {
		group.Expenses = []entity.Expense{}
	}
	if group.Settlements == nil {
		group.Settlements = []entity.Settlement{}
	}
	for i := range group.Expenses {
		if group.Expenses[i].SplitAmong == nil {
			group.Expenses[i].SplitAmong = []string{}
		}
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
