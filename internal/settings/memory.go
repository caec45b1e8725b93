package settings

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo keeps settings in process memory
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]*Settings
}

// NewMemoryRepo creates an empty repo
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[string]*Settings)}
}

func (r *MemoryRepo) Get(_ context.Context, userID string) (*Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (r *MemoryRepo) Save(_ context.Context, s *Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.UserID] = s.Clone()
	return nil
}

func (r *MemoryRepo) Update(_ context.Context, userID string, patch Patch) (*Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[userID]
	if !ok {
		s = Defaults(userID)
	} else {
		s = s.Clone()
	}
	if err := s.Apply(patch); err != nil {
		return nil, err
	}
	r.items[userID] = s
	return s.Clone(), nil
}

func (r *MemoryRepo) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var _ Repo = (*MemoryRepo)(nil)
