package orch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/rs/zerolog/log"
)

var ErrUnsupportedEvent = errors.New("event not served by this relay")

type Kind string

const (
	ChatRelay   Kind = "chat"
	StreamRelay Kind = "stream"
)

// Orchestrator is the relay context: one per relay, built once in main and
// handed to every connection handler.
type Orchestrator struct {
	Kind      Kind
	Conns     *app.Connections
	Registry  *app.Registry
	Rooms     core.RoomDirectory
	Streams   core.StreamDirectory
	Dispatch  *app.Dispatcher
	Forwarder *app.Forwarder
	Policy    app.Policy

	kickMu sync.Mutex
	kicks  []domain.ConnID
}

func New(kind Kind, policy app.Policy) *Orchestrator {
	conns := app.NewConnections()
	return &Orchestrator{
		Kind:      kind,
		Conns:     conns,
		Registry:  app.NewRegistry(),
		Rooms:     app.NewRoomManager(),
		Streams:   app.NewStreamManager(),
		Dispatch:  app.NewDispatcher(conns),
		Forwarder: app.NewForwarder(conns),
		Policy:    policy,
	}
}

// Connect makes sid reachable and tells the client its own id.
func (o *Orchestrator) Connect(sid domain.ConnID, conn core.SignalConnection) {
	sess := o.Conns.Attach(sid, conn)
	sess.Do(func() {
		o.applyPolicy(o.Dispatch.Send(sid, core.Frame(protocol.Welcome(sid))))
	})
	o.runKicks()
}

// Disconnect runs the cleanup for sid exactly once, however often it is called.
// It waits for an event of sid that is being handled to finish.
func (o *Orchestrator) Disconnect(sid domain.ConnID) {
	sess, ok := o.Conns.Session(sid)
	if !ok {
		return
	}
	sess.Close(func() { o.cleanup(sid) })
	o.runKicks()
}

// cleanup runs under the session lock of sid.
func (o *Orchestrator) cleanup(sid domain.ConnID) {
	conn, ok := o.Conns.Detach(sid)
	if !ok {
		return
	}
	res := o.leaveAllRooms(sid)
	res.Merge(o.dropFromStreams(sid))
	id, _ := o.Registry.Unregister(sid)
	conn.Close()
	log.Info().Str("module", "orch").Str("relay", string(o.Kind)).Str("sid", string(sid)).
		Str("user", string(id.UserID)).Str("username", id.Name).Msg("disconnected")
	o.applyPolicy(res)
}

// Handle routes one decoded event from sid. Events of a connection that is
// already disconnected are refused with ErrDetached.
func (o *Orchestrator) Handle(sid domain.ConnID, ev protocol.Event) error {
	sess, ok := o.Conns.Session(sid)
	if !ok {
		return fmt.Errorf("%w: %s", app.ErrDetached, sid)
	}
	var err error
	ran := sess.Do(func() { err = o.route(sid, ev) })
	o.runKicks()
	if !ran {
		return fmt.Errorf("%w: %s", app.ErrDetached, sid)
	}
	return err
}

func (o *Orchestrator) route(sid domain.ConnID, ev protocol.Event) error {
	if _, ok := ev.(protocol.Ping); ok {
		o.applyPolicy(o.Dispatch.Send(sid, core.Frame(protocol.Pong())))
		return nil
	}
	switch o.Kind {
	case ChatRelay:
		return o.handleChat(sid, ev)
	case StreamRelay:
		return o.handleStream(sid, ev)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedEvent, ev.Type())
}

func (o *Orchestrator) handleChat(sid domain.ConnID, ev protocol.Event) error {
	switch e := ev.(type) {
	case protocol.JoinRoom:
		o.JoinRoom(sid, e)
	case protocol.LeaveRoom:
		o.LeaveRoom(sid, domain.RoomID(e.RoomID))
	case protocol.SendMessage:
		o.SendMessage(sid, e)
	case protocol.Typing:
		o.Typing(sid, e)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, ev.Type())
	}
	return nil
}

func (o *Orchestrator) handleStream(sid domain.ConnID, ev protocol.Event) error {
	switch e := ev.(type) {
	case protocol.StartStream:
		o.StartStream(sid, e)
	case protocol.JoinStream:
		return o.JoinStream(sid, e)
	case protocol.Signal:
		o.Signal(sid, e)
	case protocol.StreamMessage:
		o.StreamMessage(sid, e)
	case protocol.EndStream:
		o.EndStream(sid, domain.StreamID(e.StreamID))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, ev.Type())
	}
	return nil
}

// Kick drops a connection as if it had disconnected.
func (o *Orchestrator) Kick(sid domain.ConnID) {
	o.queueKick(sid)
	o.runKicks()
}

func (o *Orchestrator) queueKick(sid domain.ConnID) {
	o.kickMu.Lock()
	o.kicks = append(o.kicks, sid)
	o.kickMu.Unlock()
}

// runKicks must not be called under any session lock: Disconnect waits for
// the kicked connection's own session.
func (o *Orchestrator) runKicks() {
	for {
		o.kickMu.Lock()
		if len(o.kicks) == 0 {
			o.kickMu.Unlock()
			return
		}
		sid := o.kicks[0]
		o.kicks = o.kicks[1:]
		o.kickMu.Unlock()

		log.Warn().Str("module", "orch").Str("relay", string(o.Kind)).Str("sid", string(sid)).Msg("kicking connection")
		o.Disconnect(sid)
	}
}

// applyPolicy only queues kicks; they run once the caller left its session.
func (o *Orchestrator) applyPolicy(res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(slow) {
		case app.KickMember:
			o.queueKick(slow)
		case app.NoAction:
		}
	}
}
