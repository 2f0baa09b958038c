package repository

import (
	"context"

	"splitchain/internal/domain/entity"
)

// GroupRepository is the storage and propagation contract for group
// documents. Two implementations exist — a networked realtime document
// store and a local file fallback — selected once at startup and injected;
// callers never branch on which one they hold.
//
// Consistency: every mutation helper is read-entire-document, mutate,
// write-entire-document. The local backend resolves concurrent writers by
// last-write-wins at the document level; the remote backend wraps the
// append helpers in a storage transaction. See DESIGN.md.
type GroupRepository interface {
	// SaveGroup upserts the full document, stamping UpdatedAt. Idempotent.
	SaveGroup(ctx context.Context, group *entity.Group) error

	// GetGroup returns (nil, nil) when the document does not exist.
	GetGroup(ctx context.Context, id string) (*entity.Group, error)

	GetAllGroups(ctx context.Context) ([]entity.Group, error)

	// AddParticipant appends the participant unless an entry with the same
	// address (case-insensitive) already exists; a duplicate or a missing
	// group is a logged no-op, not an error.
	AddParticipant(ctx context.Context, id string, participant entity.Participant) error

	// AddExpense and AddSettlement append to the group's ledger. A missing
	// group is a logged no-op.
	AddExpense(ctx context.Context, id string, expense entity.Expense) error
	AddSettlement(ctx context.Context, id string, settlement entity.Settlement) error

	UpdateGroupStatus(ctx context.Context, id string, isActive bool) error

	DeleteGroup(ctx context.Context, id string) error

	// SubscribeToGroup delivers the current document immediately if present,
	// then again on every observed change, from any writer. The returned
	// cancel function stops all further callbacks; it is safe to call more
	// than once and after the backend connection has closed.
	SubscribeToGroup(ctx context.Context, id string, fn func(*entity.Group)) (func(), error)
}
