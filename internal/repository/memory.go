package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tree-growth-backend/internal/models"
)

type taskKey struct {
	userID string
	day    string
	taskID string
}

type edgeKey struct {
	ownerID  string
	friendID string
}

// MemStore is an in-process Store used by tests and local development.
// Transactions are serialized by a single mutex; writes are staged and
// applied only when the body returns nil, matching the all-or-nothing
// guarantee of the Postgres store.
type MemStore struct {
	mu      sync.Mutex
	ledgers map[string]models.GrowthLedger
	tasks   map[taskKey]models.DailyTask
	edges   map[edgeKey]models.FriendEdge
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{
		ledgers: make(map[string]models.GrowthLedger),
		tasks:   make(map[taskKey]models.DailyTask),
		edges:   make(map[edgeKey]models.FriendEdge),
	}
}

// RunTx implements Store.
func (s *MemStore) RunTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:   s,
		ledgers: make(map[string]models.GrowthLedger),
		tasks:   make(map[taskKey]models.DailyTask),
		edges:   make(map[edgeKey]models.FriendEdge),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

// ListByOwner returns the owner's friend edges ordered by friend id.
func (s *MemStore) ListByOwner(ctx context.Context, ownerID string) ([]models.FriendEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.FriendEdge
	for k, e := range s.edges {
		if k.ownerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FriendID < out[j].FriendID })
	return out, nil
}

// SeedFriendEdge inserts or replaces an edge outside any transaction.
func (s *MemStore) SeedFriendEdge(e models.FriendEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[edgeKey{e.OwnerID, e.FriendID}] = e
}

// memTx stages writes against a locked MemStore.
type memTx struct {
	store   *MemStore
	ledgers map[string]models.GrowthLedger
	tasks   map[taskKey]models.DailyTask
	edges   map[edgeKey]models.FriendEdge
}

func (t *memTx) apply() {
	for k, v := range t.ledgers {
		t.store.ledgers[k] = v
	}
	for k, v := range t.tasks {
		t.store.tasks[k] = v
	}
	for k, v := range t.edges {
		t.store.edges[k] = v
	}
}

func (t *memTx) GetLedger(ctx context.Context, userID string) (*models.GrowthLedger, error) {
	if l, ok := t.ledgers[userID]; ok {
		cp := l
		return &cp, nil
	}
	if l, ok := t.store.ledgers[userID]; ok {
		cp := l
		return &cp, nil
	}
	return nil, nil
}

func (t *memTx) PutLedger(ctx context.Context, l *models.GrowthLedger) error {
	t.ledgers[l.UserID] = *l
	return nil
}

func (t *memTx) GetDailyTask(ctx context.Context, userID, day, taskID string) (*models.DailyTask, error) {
	k := taskKey{userID, day, taskID}
	if d, ok := t.tasks[k]; ok {
		cp := d
		return &cp, nil
	}
	if d, ok := t.store.tasks[k]; ok {
		cp := d
		return &cp, nil
	}
	return nil, nil
}

func (t *memTx) PutDailyTask(ctx context.Context, d *models.DailyTask) error {
	t.tasks[taskKey{d.UserID, d.Day, d.TaskID}] = *d
	return nil
}

func (t *memTx) ListDailyTasks(ctx context.Context, userID, day string) ([]models.DailyTask, error) {
	seen := make(map[taskKey]models.DailyTask)
	for k, d := range t.store.tasks {
		if k.userID == userID && k.day == day {
			seen[k] = d
		}
	}
	for k, d := range t.tasks {
		if k.userID == userID && k.day == day {
			seen[k] = d
		}
	}
	var out []models.DailyTask
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func (t *memTx) getEdge(ownerID, friendID string) (models.FriendEdge, bool) {
	k := edgeKey{ownerID, friendID}
	if e, ok := t.edges[k]; ok {
		return e, true
	}
	e, ok := t.store.edges[k]
	return e, ok
}

func (t *memTx) GetFriendEdge(ctx context.Context, ownerID, friendID string) (*models.FriendEdge, error) {
	e, ok := t.getEdge(ownerID, friendID)
	if !ok {
		return nil, fmt.Errorf("friend edge %s->%s: %w", ownerID, friendID, ErrNotFound)
	}
	cp := e
	return &cp, nil
}

func (t *memTx) MarkGiftSent(ctx context.Context, ownerID, friendID string, at time.Time) error {
	e, ok := t.getEdge(ownerID, friendID)
	if !ok {
		return fmt.Errorf("friend edge %s->%s: %w", ownerID, friendID, ErrNotFound)
	}
	at2 := at
	e.LastGiftToFriend = &at2
	t.edges[edgeKey{ownerID, friendID}] = e
	return nil
}

func (t *memTx) AddPendingGift(ctx context.Context, ownerID, friendID string, amount int, at time.Time) error {
	e, ok := t.getEdge(ownerID, friendID)
	if !ok {
		e = models.FriendEdge{OwnerID: ownerID, FriendID: friendID, TreeLevel: 1}
	}
	at2 := at
	e.PendingFromFriend += amount
	e.LastGiftFromFriend = &at2
	t.edges[edgeKey{ownerID, friendID}] = e
	return nil
}

func (t *memTx) SetPendingGift(ctx context.Context, ownerID, friendID string, pending int) error {
	e, ok := t.getEdge(ownerID, friendID)
	if !ok {
		return fmt.Errorf("friend edge %s->%s: %w", ownerID, friendID, ErrNotFound)
	}
	e.PendingFromFriend = pending
	t.edges[edgeKey{ownerID, friendID}] = e
	return nil
}
