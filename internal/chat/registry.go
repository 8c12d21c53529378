package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const sweepInterval = time.Minute

// Factory builds a new session for id.
type Factory func(id string) *Session

// Registry maps session identifiers to live sessions. Sessions idle for
// longer than the TTL are dropped, which ends them.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*registryEntry
	factory   Factory
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// NewRegistry returns an empty registry. A zero idleTTL keeps sessions forever.
func NewRegistry(factory Factory, idleTTL time.Duration, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		sessions: make(map[string]*registryEntry),
		factory:  factory,
		idleTTL:  idleTTL,
		now:      now,
	}
}

// GetOrCreate returns the session for id, creating it on first use. An empty
// id gets a fresh random identifier.
func (r *Registry) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idleTTL > 0 && now.Sub(r.lastSweep) >= sweepInterval {
		r.sweepLocked(now)
	}
	entry, ok := r.sessions[id]
	if !ok {
		entry = &registryEntry{session: r.factory(id)}
		r.sessions[id] = entry
	}
	entry.lastSeen = now
	return entry.session
}

// Get returns the session for id without creating one.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return entry.session, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops idle sessions that have no work in flight and returns how many
// were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.now())
}

func (r *Registry) sweepLocked(now time.Time) int {
	r.lastSweep = now
	if r.idleTTL <= 0 {
		return 0
	}
	removed := 0
	for id, entry := range r.sessions {
		// A connected viewer keeps the session alive and restarts its idle clock.
		if entry.session.Watched() {
			entry.lastSeen = now
			continue
		}
		if now.Sub(entry.lastSeen) < r.idleTTL || entry.session.Busy() {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	return removed
}

// Wait blocks until all work started by live sessions has settled.
func (r *Registry) Wait() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, entry := range r.sessions {
		sessions = append(sessions, entry.session)
	}
	r.mu.Unlock()
	for _, s := range sessions {
		s.Wait()
	}
}
