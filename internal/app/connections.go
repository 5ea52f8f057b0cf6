package app

import (
	"errors"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrStaleTarget = errors.New("target not connected")
	ErrDetached    = errors.New("connection detached")
)

// Session serializes the work done on behalf of one connection. Once Close
// has run, Do refuses everything, so no state can be created for a
// connection whose cleanup is already done.
type Session struct {
	Conn core.SignalConnection

	mu   sync.Mutex
	dead bool
}

// Do runs fn unless the session is closed.
func (s *Session) Do(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return false
	}
	fn()
	return true
}

// Close marks the session dead and runs fn, once. It waits for a Do in
// progress to finish.
func (s *Session) Close(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return false
	}
	s.dead = true
	fn()
	return true
}

// Connections is the transport's table of live sockets.
// Detach succeeds once per sid, which makes it the disconnect guard.
type Connections struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]*Session
}

func NewConnections() *Connections {
	return &Connections{sessions: make(map[domain.ConnID]*Session)}
}

func (c *Connections) Attach(sid domain.ConnID, conn core.SignalConnection) *Session {
	s := &Session{Conn: conn}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[sid] = s
	log.Info().Str("module", "app.conns").Str("sid", string(sid)).Int("count", len(c.sessions)).Msg("attached")
	return s
}

func (c *Connections) Detach(sid domain.ConnID) (core.SignalConnection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sid]
	if !ok {
		return nil, false
	}
	delete(c.sessions, sid)
	log.Info().Str("module", "app.conns").Str("sid", string(sid)).Int("count", len(c.sessions)).Msg("detached")
	return s.Conn, true
}

func (c *Connections) Session(sid domain.ConnID) (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[sid]
	return s, ok
}

func (c *Connections) Get(sid domain.ConnID) (core.SignalConnection, bool) {
	s, ok := c.Session(sid)
	if !ok {
		return nil, false
	}
	return s.Conn, true
}

func (c *Connections) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Send delivers f to one live connection.
func (c *Connections) Send(sid domain.ConnID, f core.Frame) error {
	conn, ok := c.Get(sid)
	if !ok {
		return ErrStaleTarget
	}
	return conn.TrySend(f)
}
