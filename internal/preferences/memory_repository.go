package preferences

import (
	"context"
	"sync"
)

var _ Repository = (*InMemoryRepository)(nil)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	owners map[string]map[string]*Preference
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		owners: make(map[string]map[string]*Preference),
	}
}

// Get retrieves a single preference for an owner.
func (r *InMemoryRepository) Get(_ context.Context, ownerID, key string) (*Preference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pref, ok := r.owners[ownerID][key]
	if !ok {
		return nil, ErrPreferenceNotFound
	}
	p := *pref
	return &p, nil
}

// List retrieves all stored preferences for an owner.
func (r *InMemoryRepository) List(_ context.Context, ownerID string) (map[string]*Preference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Preference, len(r.owners[ownerID]))
	for k, v := range r.owners[ownerID] {
		p := *v
		result[k] = &p
	}
	return result, nil
}

// Set creates or updates a preference.
func (r *InMemoryRepository) Set(_ context.Context, pref *Preference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefs, ok := r.owners[pref.OwnerID]
	if !ok {
		prefs = make(map[string]*Preference)
		r.owners[pref.OwnerID] = prefs
	}
	p := *pref
	prefs[pref.Key] = &p
	return nil
}

// DeleteOwner removes every preference stored for an owner.
func (r *InMemoryRepository) DeleteOwner(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.owners, ownerID)
	return nil
}
