package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"splitchain/internal/domain/entity"
	"splitchain/pkg/logger"
)

type localSubscription struct {
	groupID string
	fn      func(*entity.Group)
	// lastSeen is the UpdatedAt of the last delivered document. The file
	// watcher also fires for this process's own writes, which were already
	// delivered synchronously, so deliveries are deduplicated on it.
	lastSeen int64
}

// LocalGroupRepository is the fallback backend used when the realtime store
// is not configured. All groups live in one JSON file as a single array,
// rewritten wholesale on every save. Subscribers in this process are
// notified synchronously after each write; writes by other processes are
// picked up through a filesystem watch on the store file.
//
// Concurrent read-modify-write cycles are not detected here: the last
// writer wins at the document level.
type LocalGroupRepository struct {
	path string

	mu sync.Mutex // serializes file read-modify-write cycles

	subMu  sync.Mutex
	subs   map[int]*localSubscription
	nextID int

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	done      chan struct{}
}

func NewLocalGroupRepository(path string) (*LocalGroupRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: editors and other writers may
	// replace the file, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	r := &LocalGroupRepository{
		path:    path,
		subs:    make(map[int]*localSubscription),
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go r.watchLoop()

	return r, nil
}

// Close stops the file watcher. Pending subscriptions stop receiving
// cross-process updates but their cancel functions remain safe to call.
func (r *LocalGroupRepository) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		err = r.watcher.Close()
	})
	return err
}

func (r *LocalGroupRepository) watchLoop() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(r.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			r.notifyFromDisk()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Group store watch error: %v", err)
		case <-r.done:
			return
		}
	}
}

func (r *LocalGroupRepository) notifyFromDisk() {
	r.mu.Lock()
	groups, err := r.readAll()
	r.mu.Unlock()
	if err != nil {
		logger.Warn("Failed to reload group store: %v", err)
		return
	}

	byID := make(map[string]*entity.Group, len(groups))
	for i := range groups {
		byID[groups[i].ID] = &groups[i]
	}

	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, sub := range r.subs {
		group, ok := byID[sub.groupID]
		if !ok || group.UpdatedAt == sub.lastSeen {
			continue
		}
		sub.lastSeen = group.UpdatedAt
		sub.fn(group)
	}
}

// notifyGroup delivers a just-written document to this process's
// subscribers. The filesystem watch does not count as delivery for the
// writing process, same as a storage event never firing in the writing tab.
func (r *LocalGroupRepository) notifyGroup(group *entity.Group) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, sub := range r.subs {
		if sub.groupID != group.ID || sub.lastSeen == group.UpdatedAt {
			continue
		}
		sub.lastSeen = group.UpdatedAt
		sub.fn(group)
	}
}

func (r *LocalGroupRepository) readAll() ([]entity.Group, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []entity.Group{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return []entity.Group{}, nil
	}

	var groups []entity.Group
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *LocalGroupRepository) writeAll(groups []entity.Group) error {
	data, err := json.Marshal(groups)
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}

func (r *LocalGroupRepository) SaveGroup(ctx context.Context, group *entity.Group) error {
	r.mu.Lock()
	groups, err := r.readAll()
	if err != nil {
		r.mu.Unlock()
		return err
	}

	// Keep UpdatedAt strictly increasing per document so two saves inside
	// the same millisecond still read as distinct versions.
	stamp := nowMillis()
	replaced := false
	for i := range groups {
		if groups[i].ID == group.ID {
			if stamp <= groups[i].UpdatedAt {
				stamp = groups[i].UpdatedAt + 1
			}
			group.UpdatedAt = stamp
			normalizeGroup(group)
			groups[i] = *group
			replaced = true
			break
		}
	}
	if !replaced {
		group.UpdatedAt = stamp
		normalizeGroup(group)
		groups = append(groups, *group)
	}

	if err := r.writeAll(groups); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	r.notifyGroup(group)
	return nil
}

func (r *LocalGroupRepository) GetGroup(ctx context.Context, id string) (*entity.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	groups, err := r.readAll()
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].ID == id {
			return &groups[i], nil
		}
	}
	return nil, nil
}

func (r *LocalGroupRepository) GetAllGroups(ctx context.Context) ([]entity.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readAll()
}

func (r *LocalGroupRepository) AddParticipant(ctx context.Context, id string, participant entity.Participant) error {
	group, err := r.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if group == nil {
		logger.Warn("Group not found: %s", id)
		return nil
	}
	if group.HasParticipant(participant.Address) {
		return nil
	}

	group.Participants = append(group.Participants, participant)
	return r.SaveGroup(ctx, group)
}

func (r *LocalGroupRepository) AddExpense(ctx context.Context, id string, expense entity.Expense) error {
	group, err := r.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if group == nil {
		logger.Warn("Group not found: %s", id)
		return nil
	}

	group.Expenses = append(group.Expenses, expense)
	return r.SaveGroup(ctx, group)
}

func (r *LocalGroupRepository) AddSettlement(ctx context.Context, id string, settlement entity.Settlement) error {
	group, err := r.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if group == nil {
		logger.Warn("Group not found: %s", id)
		return nil
	}

	group.Settlements = append(group.Settlements, settlement)
	return r.SaveGroup(ctx, group)
}

func (r *LocalGroupRepository) UpdateGroupStatus(ctx context.Context, id string, isActive bool) error {
	group, err := r.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if group == nil {
		logger.Warn("Group not found: %s", id)
		return nil
	}

	group.IsActive = isActive
	return r.SaveGroup(ctx, group)
}

func (r *LocalGroupRepository) DeleteGroup(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	groups, err := r.readAll()
	if err != nil {
		return err
	}
	kept := groups[:0]
	for _, g := range groups {
		if g.ID != id {
			kept = append(kept, g)
		}
	}
	return r.writeAll(kept)
}

func (r *LocalGroupRepository) SubscribeToGroup(ctx context.Context, id string, fn func(*entity.Group)) (func(), error) {
	sub := &localSubscription{groupID: id, fn: fn}

	// Initial delivery before registration, so the first change cannot be
	// observed out of order with the snapshot.
	if group, err := r.GetGroup(ctx, id); err == nil && group != nil {
		sub.lastSeen = group.UpdatedAt
		fn(group)
	}

	r.subMu.Lock()
	r.nextID++
	key := r.nextID
	r.subs[key] = sub
	r.subMu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			r.subMu.Lock()
			delete(r.subs, key)
			r.subMu.Unlock()
		})
	}
	return unsubscribe, nil
}
