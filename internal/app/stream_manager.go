package app

import (
	"errors"
	"sort"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

type StreamManagerImpl struct {
	mu      sync.RWMutex
	streams map[domain.StreamID]core.StreamService
}

func NewStreamManager() core.StreamDirectory {
	return &StreamManagerImpl{streams: make(map[domain.StreamID]core.StreamService)}
}

func (m *StreamManagerImpl) Start(id domain.StreamID, broadcaster domain.Member) (core.StreamService, core.StreamService) {
	s := core.NewStreamService(id, broadcaster)
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.streams[id]
	m.streams[id] = s
	ev := log.Info().Str("module", "app.streams").Str("stream", string(id)).Str("sid", string(broadcaster.Conn))
	if old != nil {
		ev = ev.Str("replaced_sid", string(old.Broadcaster().Conn))
	}
	ev.Msg("stream started")
	return s, old
}

func (m *StreamManagerImpl) Get(id domain.StreamID) (core.StreamService, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.streams[id]
	return s, ok
}

func (m *StreamManagerImpl) Join(id domain.StreamID, sid domain.ConnID, fn func(broadcaster domain.Member, added bool)) error {
	for {
		s, ok := m.Get(id)
		if !ok {
			return core.ErrStreamNotFound
		}
		err := s.AddViewer(sid, fn)
		if errors.Is(err, core.ErrStreamNotFound) {
			// lost a race with a restart under the same id
			if cur, ok := m.Get(id); ok && cur != s {
				continue
			}
		}
		return err
	}
}

func (m *StreamManagerImpl) Remove(id domain.StreamID, s core.StreamService) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.streams[id]; !ok || cur != s {
		return false
	}
	delete(m.streams, id)
	return true
}

func (m *StreamManagerImpl) Owned(sid domain.ConnID) []core.StreamService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.StreamService
	for _, s := range m.streams {
		if s.Broadcaster().Conn == sid {
			out = append(out, s)
		}
	}
	return out
}

func (m *StreamManagerImpl) Watching(sid domain.ConnID) []core.StreamService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.StreamService
	for _, s := range m.streams {
		if s.HasViewer(sid) {
			out = append(out, s)
		}
	}
	return out
}

func (m *StreamManagerImpl) List() []domain.StreamInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.StreamInfo, 0, len(m.streams))
	for id, s := range m.streams {
		out = append(out, domain.StreamInfo{
			ID:              id,
			BroadcasterName: s.Broadcaster().Identity.Name,
			ViewerCount:     s.ViewerCount(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
