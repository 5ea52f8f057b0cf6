package core

import (
	"sync"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	id      domain.RoomID
	mu      sync.Mutex
	order   []domain.ConnID
	bySID   map[domain.ConnID]domain.Member
	history *History
}

func NewRoomService(id domain.RoomID, history *History) RoomService {
	return &roomImpl{
		id:      id,
		bySID:   make(map[domain.ConnID]domain.Member),
		history: history,
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySID)
}

func (r *roomImpl) MessageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Len()
}

func (r *roomImpl) Has(sid domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.bySID[sid]
	return ok
}

func (r *roomImpl) Join(m domain.Member, fn JoinFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.bySID[m.Conn]
	if !exists {
		r.bySID[m.Conn] = m
		r.order = append(r.order, m.Conn)
		log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(m.Conn)).Str("user", string(m.Identity.UserID)).Msg("member added")
	}
	if fn != nil {
		fn(r.history.All(), r.membersExcept(m.Conn), !exists)
	}
}

func (r *roomImpl) Leave(sid domain.ConnID, fn LeaveFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.bySID[sid]
	if !ok {
		return false
	}
	delete(r.bySID, sid)
	for i, s := range r.order {
		if s == sid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Msg("member removed")
	if fn != nil {
		fn(m, r.membersExcept(""))
	}
	return true
}

func (r *roomImpl) Post(msg domain.Message, fn PostFunc) domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.history.Append(msg)
	if fn != nil {
		fn(stored, r.membersExcept(""))
	}
	return stored
}

func (r *roomImpl) WithMembers(fn func(members []domain.Member)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.membersExcept(""))
}

func (r *roomImpl) History() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.All()
}

// membersExcept returns members in join order; caller holds r.mu.
func (r *roomImpl) membersExcept(sid domain.ConnID) []domain.Member {
	out := make([]domain.Member, 0, len(r.order))
	for _, s := range r.order {
		if s == sid {
			continue
		}
		out = append(out, r.bySID[s])
	}
	return out
}
