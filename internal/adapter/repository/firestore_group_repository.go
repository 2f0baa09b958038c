package repository

import (
	"context"
	"log"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"splitchain/internal/domain/entity"
	"splitchain/internal/domain/repository"
	"splitchain/pkg/logger"
)

const groupsCollection = "groups"

type firestoreGroupRepository struct {
	client *firestore.Client
}

// NewFirestoreGroupRepository returns the networked backend. Group
// documents live at groups/{id} and are always written whole.
func NewFirestoreGroupRepository(client *firestore.Client) repository.GroupRepository {
	return &firestoreGroupRepository{
		client: client,
	}
}

func (r *firestoreGroupRepository) SaveGroup(ctx context.Context, group *entity.Group) error {
	group.UpdatedAt = nowMillis()
	normalizeGroup(group)

	_, err := r.client.Collection(groupsCollection).Doc(group.ID).Set(ctx, group)
	if err != nil {
		logger.Error("Failed to save group %s: %v", group.ID, err)
		return err
	}
	return nil
}

func (r *firestoreGroupRepository) GetGroup(ctx context.Context, id string) (*entity.Group, error) {
	doc, err := r.client.Collection(groupsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}

	var group entity.Group
	if err := doc.DataTo(&group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *firestoreGroupRepository) GetAllGroups(ctx context.Context) ([]entity.Group, error) {
	iter := r.client.Collection(groupsCollection).Documents(ctx)
	defer iter.Stop()

	var groups []entity.Group
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var group entity.Group
		if err := doc.DataTo(&group); err != nil {
			log.Printf("Error converting group document: %v", err)
			continue
		}
		groups = append(groups, group)
	}

	if groups == nil {
		groups = []entity.Group{}
	}
	return groups, nil
}

func (r *firestoreGroupRepository) AddParticipant(ctx context.Context, id string, participant entity.Participant) error {
	return r.appendToGroup(ctx, id, func(group *entity.Group) bool {
		if group.HasParticipant(participant.Address) {
			return false
		}
		group.Participants = append(group.Participants, participant)
		return true
	})
}

func (r *firestoreGroupRepository) AddExpense(ctx context.Context, id string, expense entity.Expense) error {
	return r.appendToGroup(ctx, id, func(group *entity.Group) bool {
		group.Expenses = append(group.Expenses, expense)
		return true
	})
}

func (r *firestoreGroupRepository) AddSettlement(ctx context.Context, id string, settlement entity.Settlement) error {
	return r.appendToGroup(ctx, id, func(group *entity.Group) bool {
		group.Settlements = append(group.Settlements, settlement)
		return true
	})
}

// appendToGroup runs a read-modify-write append inside a storage
// transaction, so two concurrent appends against the same group cannot
// lose each other on this backend. A missing group logs and no-ops.
func (r *firestoreGroupRepository) appendToGroup(ctx context.Context, id string, mutate func(*entity.Group) bool) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docRef := r.client.Collection(groupsCollection).Doc(id)
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				logger.Warn("Group not found: %s", id)
				return nil
			}
			return err
		}

		var group entity.Group
		if err := doc.DataTo(&group); err != nil {
			return err
		}

		if !mutate(&group) {
			return nil
		}

		group.UpdatedAt = nowMillis()
		normalizeGroup(&group)
		return tx.Set(docRef, &group)
	})
}

func (r *firestoreGroupRepository) UpdateGroupStatus(ctx context.Context, id string, isActive bool) error {
	_, err := r.client.Collection(groupsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "isActive", Value: isActive},
		{Path: "updatedAt", Value: nowMillis()},
	})
	return err
}

func (r *firestoreGroupRepository) DeleteGroup(ctx context.Context, id string) error {
	_, err := r.client.Collection(groupsCollection).Doc(id).Delete(ctx)
	return err
}

func (r *firestoreGroupRepository) SubscribeToGroup(ctx context.Context, id string, fn func(*entity.Group)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	iter := r.client.Collection(groupsCollection).Doc(id).Snapshots(ctx)

	go func() {
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logger.Error("Group subscription %s terminated: %v", id, err)
				}
				return
			}

			if !snap.Exists() {
				fn(nil)
				continue
			}

			var group entity.Group
			if err := snap.DataTo(&group); err != nil {
				log.Printf("Error converting group snapshot: %v", err)
				continue
			}
			fn(&group)
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			iter.Stop()
		})
	}
	return unsubscribe, nil
}
