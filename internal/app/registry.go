package app

import (
	"sync"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry binds a connection to the identity it declared.
// It never notifies rooms; the orchestrator decides what cleanup follows.
type Registry struct {
	mu    sync.RWMutex
	users map[domain.ConnID]domain.Identity
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[domain.ConnID]domain.Identity)}
}

// Register overwrites any identity previously bound to sid.
func (r *Registry) Register(sid domain.ConnID, id domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[sid] = id
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(id.UserID)).Str("username", id.Name).Msg("registered identity")
}

func (r *Registry) Unregister(sid domain.ConnID) (domain.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.users[sid]
	if !ok {
		return domain.Identity{}, false
	}
	delete(r.users, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unregistered identity")
	return id, true
}

func (r *Registry) Lookup(sid domain.ConnID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.users[sid]
	return id, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
