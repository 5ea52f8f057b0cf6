package core

import (
	"sync"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

type streamImpl struct {
	id          domain.StreamID
	broadcaster domain.Member

	mu      sync.Mutex
	order   []domain.ConnID
	viewers map[domain.ConnID]struct{}
	ended   bool
}

func NewStreamService(id domain.StreamID, broadcaster domain.Member) StreamService {
	return &streamImpl{
		id:          id,
		broadcaster: broadcaster,
		viewers:     make(map[domain.ConnID]struct{}),
	}
}

func (s *streamImpl) ID() domain.StreamID        { return s.id }
func (s *streamImpl) Broadcaster() domain.Member { return s.broadcaster }

func (s *streamImpl) ViewerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

func (s *streamImpl) HasViewer(sid domain.ConnID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.viewers[sid]
	return ok
}

func (s *streamImpl) AddViewer(sid domain.ConnID, fn func(broadcaster domain.Member, added bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return ErrStreamNotFound
	}
	_, exists := s.viewers[sid]
	added := !exists && sid != s.broadcaster.Conn
	if added {
		s.viewers[sid] = struct{}{}
		s.order = append(s.order, sid)
		log.Info().Str("module", "core.stream").Str("stream", string(s.id)).Str("sid", string(sid)).Msg("viewer added")
	}
	if fn != nil {
		fn(s.broadcaster, added)
	}
	return nil
}

func (s *streamImpl) RemoveViewer(sid domain.ConnID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.viewers[sid]; !ok {
		return false
	}
	delete(s.viewers, sid)
	for i, v := range s.order {
		if v == sid {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "core.stream").Str("stream", string(s.id)).Str("sid", string(sid)).Msg("viewer removed")
	return true
}

func (s *streamImpl) End(fn func(viewers []domain.ConnID)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	s.ended = true
	viewers := s.order
	s.order = nil
	s.viewers = make(map[domain.ConnID]struct{})
	log.Info().Str("module", "core.stream").Str("stream", string(s.id)).Int("viewers", len(viewers)).Msg("stream ended")
	if fn != nil {
		fn(viewers)
	}
	return true
}

func (s *streamImpl) WithAudience(fn func(audience []domain.ConnID)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	audience := make([]domain.ConnID, 0, len(s.order)+1)
	audience = append(audience, s.broadcaster.Conn)
	audience = append(audience, s.order...)
	fn(audience)
	return true
}
