package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipherd/clipherd/pkg/clipherd"
)

// Repository implements clipherd.Repository using in-memory storage
type Repository struct {
	mu           sync.RWMutex
	items        map[uuid.UUID]*clipherd.ContentItem
	accounts     map[string]*clipherd.AccountState
	fingerprints map[string]*clipherd.PublishedFingerprint // keyed by source ref
	commands     map[uuid.UUID]*clipherd.Command
	cmdOrder     []uuid.UUID
}

// New creates a new in-memory repository
func New() clipherd.Repository {
	return &Repository{
		items:        make(map[uuid.UUID]*clipherd.ContentItem),
		accounts:     make(map[string]*clipherd.AccountState),
		fingerprints: make(map[string]*clipherd.PublishedFingerprint),
		commands:     make(map[uuid.UUID]*clipherd.Command),
	}
}

// Item operations

func (r *Repository) CreateItem(ctx context.Context, item *clipherd.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Create a copy to avoid external modifications
	itemCopy := *item
	r.items[item.ID] = &itemCopy
	return nil
}

func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*clipherd.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return nil, clipherd.ErrItemNotFound
	}
	itemCopy := *item
	return &itemCopy, nil
}

func (r *Repository) UpdateItem(ctx context.Context, item *clipherd.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; !exists {
		return clipherd.ErrItemNotFound
	}
	itemCopy := *item
	r.items[item.ID] = &itemCopy
	return nil
}

func (r *Repository) ListItems(ctx context.Context, account string, statuses ...clipherd.ItemStatus) ([]*clipherd.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*clipherd.ContentItem
	for _, item := range r.items {
		if item.Account != account {
			continue
		}
		if len(statuses) > 0 && !statusIn(item.Status, statuses) {
			continue
		}
		itemCopy := *item
		result = append(result, &itemCopy)
	}

	// Oldest first: discovery order is queue order.
	sort.Slice(result, func(i, j int) bool {
		return result[i].DiscoveredAt.Before(result[j].DiscoveredAt)
	})
	return result, nil
}

func (r *Repository) PurgeItem(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[id]; !exists {
		return clipherd.ErrItemNotFound
	}
	delete(r.items, id)
	return nil
}

func statusIn(status clipherd.ItemStatus, statuses []clipherd.ItemStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Account operations

func (r *Repository) CreateAccount(ctx context.Context, state *clipherd.AccountState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[state.Account]; exists {
		return clipherd.ErrAccountExists
	}
	stateCopy := *state
	r.accounts[state.Account] = &stateCopy
	return nil
}

func (r *Repository) GetAccount(ctx context.Context, account string) (*clipherd.AccountState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, exists := r.accounts[account]
	if !exists {
		return nil, clipherd.ErrAccountNotFound
	}
	stateCopy := *state
	return &stateCopy, nil
}

func (r *Repository) UpdateAccount(ctx context.Context, state *clipherd.AccountState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[state.Account]; !exists {
		return clipherd.ErrAccountNotFound
	}
	stateCopy := *state
	r.accounts[state.Account] = &stateCopy
	return nil
}

func (r *Repository) ListAccounts(ctx context.Context) ([]*clipherd.AccountState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*clipherd.AccountState
	for _, state := range r.accounts {
		stateCopy := *state
		result = append(result, &stateCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Account < result[j].Account
	})
	return result, nil
}

// Published fingerprint operations

func (r *Repository) AddPublishedFingerprint(ctx context.Context, fp *clipherd.PublishedFingerprint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Idempotent on source ref.
	if _, exists := r.fingerprints[fp.SourceRef]; exists {
		return nil
	}
	fpCopy := *fp
	r.fingerprints[fp.SourceRef] = &fpCopy
	return nil
}

func (r *Repository) ListPublishedFingerprints(ctx context.Context) ([]*clipherd.PublishedFingerprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*clipherd.PublishedFingerprint
	for _, fp := range r.fingerprints {
		fpCopy := *fp
		result = append(result, &fpCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PublishedAt.Before(result[j].PublishedAt)
	})
	return result, nil
}

func (r *Repository) DeletePublishedFingerprintsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for ref, fp := range r.fingerprints {
		if fp.PublishedAt.Before(cutoff) {
			delete(r.fingerprints, ref)
			removed++
		}
	}
	return removed, nil
}

// Command operations

func (r *Repository) EnqueueCommand(ctx context.Context, cmd *clipherd.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.ID]; exists {
		return nil
	}
	cmdCopy := *cmd
	if cmd.Discovery != nil {
		discCopy := *cmd.Discovery
		cmdCopy.Discovery = &discCopy
	}
	r.commands[cmd.ID] = &cmdCopy
	r.cmdOrder = append(r.cmdOrder, cmd.ID)
	return nil
}

func (r *Repository) PendingCommands(ctx context.Context, account string) ([]*clipherd.Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*clipherd.Command
	for _, id := range r.cmdOrder {
		cmd, exists := r.commands[id]
		if !exists || cmd.Account != account {
			continue
		}
		cmdCopy := *cmd
		if cmd.Discovery != nil {
			discCopy := *cmd.Discovery
			cmdCopy.Discovery = &discCopy
		}
		result = append(result, &cmdCopy)
	}
	return result, nil
}

func (r *Repository) CompleteCommand(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[id]; !exists {
		return clipherd.ErrCommandNotFound
	}
	delete(r.commands, id)
	for i, cid := range r.cmdOrder {
		if cid == id {
			r.cmdOrder = append(r.cmdOrder[:i], r.cmdOrder[i+1:]...)
			break
		}
	}
	return nil
}
