package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomManager() core.RoomDirectory {
	return &RoomManagerImpl{rooms: make(map[domain.RoomID]core.RoomService)}
}

func (f *RoomManagerImpl) GetOrCreate(id domain.RoomID) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[id]; ok {
		return room
	}
	room = core.NewRoomService(id, core.NewHistory())
	f.rooms[id] = room
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	return room
}

func (f *RoomManagerImpl) Get(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

func (f *RoomManagerImpl) List() []domain.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		out = append(out, domain.RoomInfo{ID: id, MemberCount: r.MemberCount(), MessageCount: r.MessageCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *RoomManagerImpl) Joined(sid domain.ConnID) []core.RoomService {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []core.RoomService
	for _, r := range f.rooms {
		if r.Has(sid) {
			out = append(out, r)
		}
	}
	return out
}
