package orch

import (
	"errors"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// StartStream installs a fresh stream. An older instance under the same id is
// ended first: its viewers and its broadcaster get stream-ended.
func (o *Orchestrator) StartStream(sid domain.ConnID, e protocol.StartStream) {
	id, err := domain.NewIdentity("", e.StreamerName)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("start-stream rejected")
		return
	}
	o.Registry.Register(sid, id)

	streamID := domain.StreamID(e.StreamID)
	_, old := o.Streams.Start(streamID, domain.NewMember(sid, id))
	if old == nil {
		return
	}
	res := o.endStream(old)
	if prev := old.Broadcaster().Conn; prev != sid {
		res.Merge(o.Dispatch.Send(prev, core.Frame(protocol.StreamEnded(streamID))))
	}
	o.applyPolicy(res)
}

// JoinStream tells the broadcaster about the new viewer so the two can
// negotiate through the forwarder. Unknown streams answer with an error frame.
func (o *Orchestrator) JoinStream(sid domain.ConnID, e protocol.JoinStream) error {
	if e.ViewerID != "" {
		if id, err := domain.NewIdentity(string(e.ViewerID), ""); err == nil {
			o.Registry.Register(sid, id)
		}
	}
	streamID := domain.StreamID(e.StreamID)
	var res core.PublishResult
	err := o.Streams.Join(streamID, sid, func(b domain.Member, _ bool) {
		if b.Conn != sid {
			res = o.Dispatch.Send(b.Conn, core.Frame(protocol.ViewerJoined(sid)))
		}
	})
	if errors.Is(err, core.ErrStreamNotFound) {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("stream", string(streamID)).Msg("join-stream: not found")
		res = o.Dispatch.Send(sid, core.Frame(protocol.Error(protocol.NotFoundMessage)))
	}
	o.applyPolicy(res)
	return err
}

// Signal forwards an offer/answer/candidate; stale targets are dropped silently.
func (o *Orchestrator) Signal(sid domain.ConnID, e protocol.Signal) {
	to := domain.ConnID(e.To)
	err := o.Forwarder.Forward(e.Kind, sid, to, e.Payload)
	switch {
	case err == nil, errors.Is(err, app.ErrStaleTarget), errors.Is(err, core.ErrConnClosed):
	case errors.Is(err, core.ErrBackpressure):
		o.applyPolicy(core.PublishResult{Dropped: []domain.ConnID{to}})
	default:
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("forward failed")
	}
}

// StreamMessage goes to the broadcaster and every viewer, sender included.
// The sender name is whatever the connection declared on start or join.
func (o *Orchestrator) StreamMessage(sid domain.ConnID, e protocol.StreamMessage) {
	s, ok := o.Streams.Get(domain.StreamID(e.StreamID))
	if !ok {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("stream", string(e.StreamID)).Msg("stream-message to unknown stream, dropped")
		return
	}
	msg := domain.Message{
		ID:        ulid.Make(),
		Text:      e.Message,
		Sender:    domain.UserID(e.Sender),
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	if id, ok := o.Registry.Lookup(sid); ok {
		msg.SenderName = id.Name
	}
	var res core.PublishResult
	s.WithAudience(func(audience []domain.ConnID) {
		res = o.Dispatch.Publish(audience, "", core.Frame(protocol.StreamMessageFrame(msg)))
	})
	o.applyPolicy(res)
}

// EndStream is honoured only from the stream's own broadcaster; repeats are no-ops.
func (o *Orchestrator) EndStream(sid domain.ConnID, id domain.StreamID) {
	s, ok := o.Streams.Get(id)
	if !ok {
		return
	}
	if s.Broadcaster().Conn != sid {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("stream", string(id)).Msg("end-stream from non-broadcaster ignored")
		return
	}
	o.applyPolicy(o.endStream(s))
}

func (o *Orchestrator) endStream(s core.StreamService) core.PublishResult {
	o.Streams.Remove(s.ID(), s)
	var res core.PublishResult
	s.End(func(viewers []domain.ConnID) {
		res = o.Dispatch.Publish(viewers, "", core.Frame(protocol.StreamEnded(s.ID())))
	})
	return res
}

func (o *Orchestrator) dropFromStreams(sid domain.ConnID) core.PublishResult {
	var res core.PublishResult
	for _, s := range o.Streams.Owned(sid) {
		res.Merge(o.endStream(s))
	}
	for _, s := range o.Streams.Watching(sid) {
		s.RemoveViewer(sid)
	}
	return res
}
