package storage

import (
	"context"
	"sync"

	"p9e.in/requisition/models"
)

// MemoryStateRepository keeps the state in process memory.
type MemoryStateRepository struct {
	mu    sync.Mutex
	state models.PersistedState
	saves int
}

// NewMemoryStateRepository creates an empty repository.
func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{}
}

var _ StateRepository = (*MemoryStateRepository)(nil)

func (r *MemoryStateRepository) Load(ctx context.Context) (models.PersistedState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone(), nil
}

func (r *MemoryStateRepository) Save(ctx context.Context, state models.PersistedState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state.Clone()
	r.saves++
	return nil
}

// Saves counts how many times Save was called.
func (r *MemoryStateRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// MemorySettingsRepository keeps settings in a map.
type MemorySettingsRepository struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemorySettingsRepository creates an empty repository.
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{values: make(map[string]string)}
}

var _ SettingsRepository = (*MemorySettingsRepository)(nil)

func (r *MemorySettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *MemorySettingsRepository) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *MemorySettingsRepository) All(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out, nil
}
