package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// RegistryConfig holds configuration for the session registry.
type RegistryConfig struct {
	// Clock drives controller timestamps and idle sweeping (default: real clock).
	Clock clockwork.Clock

	// IdleTTL is how long an untouched session is kept (default: 12 hours).
	IdleTTL time.Duration

	// OnExpire is called with the id of every swept session, outside the lock.
	OnExpire func(id string)

	Logger zerolog.Logger
}

// Registry owns one Controller per dashboard session.
type Registry struct {
	clock    clockwork.Clock
	idleTTL  time.Duration
	onExpire func(id string)
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	controller *Controller
	createdAt  time.Time
	lastSeen   time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	idleTTL := cfg.IdleTTL
	if idleTTL == 0 {
		idleTTL = 12 * time.Hour
	}
	return &Registry{
		clock:    clock,
		idleTTL:  idleTTL,
		onExpire: cfg.OnExpire,
		logger:   cfg.Logger,
		sessions: make(map[string]*session),
	}
}

// Create starts a new session and returns its id.
func (r *Registry) Create() (string, *Controller) {
	id := uuid.NewString()
	now := r.clock.Now()
	c := NewController(r.clock)

	r.mu.Lock()
	r.sessions[id] = &session{controller: c, createdAt: now, lastSeen: now}
	r.mu.Unlock()

	return id, c
}

// Get returns the controller for a session and marks it as seen.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = r.clock.Now()
	return s.controller, nil
}

// Delete tears down a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the idle TTL and returns how
// many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.clock.Now().Add(-r.idleTTL)

	r.mu.Lock()
	var expired []string
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	if r.onExpire != nil {
		for _, id := range expired {
			r.onExpire(id)
		}
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is canceled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := r.Sweep(); n > 0 {
				r.logger.Info().
					Int("removed", n).
					Int("remaining", r.Len()).
					Msg("swept idle alert sessions")
			}
		}
	}
}
