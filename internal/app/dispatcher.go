package app

import (
	"errors"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Dispatcher fans one frame out to an audience of connections.
// Delivery is at-most-once: a connection that is gone is skipped, a full
// buffer is reported back as dropped for the Policy to act on.
type Dispatcher struct {
	Conns *Connections
}

func NewDispatcher(conns *Connections) *Dispatcher {
	return &Dispatcher{Conns: conns}
}

// Publish sends f to every sid in to except the excluded one ("" excludes nobody).
func (d *Dispatcher) Publish(to []domain.ConnID, except domain.ConnID, f core.Frame) core.PublishResult {
	res := core.PublishResult{}
	if f == nil {
		return res
	}
	for _, sid := range to {
		if sid == except {
			continue
		}
		d.deliver(sid, f, &res)
	}
	return res
}

// PublishMembers is Publish over room members.
func (d *Dispatcher) PublishMembers(to []domain.Member, except domain.ConnID, f core.Frame) core.PublishResult {
	ids := make([]domain.ConnID, 0, len(to))
	for _, m := range to {
		ids = append(ids, m.Conn)
	}
	return d.Publish(ids, except, f)
}

// Send delivers f to a single connection.
func (d *Dispatcher) Send(sid domain.ConnID, f core.Frame) core.PublishResult {
	res := core.PublishResult{}
	if f != nil {
		d.deliver(sid, f, &res)
	}
	return res
}

func (d *Dispatcher) deliver(sid domain.ConnID, f core.Frame, res *core.PublishResult) {
	err := d.Conns.Send(sid, f)
	switch {
	case err == nil:
		res.SentTo++
	case errors.Is(err, core.ErrBackpressure):
		res.Dropped = append(res.Dropped, sid)
	default:
		log.Debug().Err(err).Str("module", "app.dispatch").Str("sid", string(sid)).Msg("skip delivery")
	}
}
