package preferences

import "context"

// Repository defines the interface for preference storage.
type Repository interface {
	// Get retrieves a single preference for an owner.
	Get(ctx context.Context, ownerID, key string) (*Preference, error)

	// List retrieves all stored preferences for an owner keyed by preference key.
	List(ctx context.Context, ownerID string) (map[string]*Preference, error)

	// Set creates or updates a preference.
	Set(ctx context.Context, pref *Preference) error

	// DeleteOwner removes every preference stored for an owner.
	DeleteOwner(ctx context.Context, ownerID string) error
}
