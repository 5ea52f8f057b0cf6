package app

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/rs/zerolog/log"
)

var ErrNotSignal = errors.New("not a signaling kind")

// Forwarder relays offer/answer/ICE payloads between two connections.
// It holds no state and never looks inside the payload.
type Forwarder struct {
	Conns *Connections
}

func NewForwarder(conns *Connections) *Forwarder {
	return &Forwarder{Conns: conns}
}

// Forward delivers {kind, from, payload} to exactly the connection to.
// A destination that is no longer connected yields ErrStaleTarget.
func (f *Forwarder) Forward(kind protocol.Type, from, to domain.ConnID, payload json.RawMessage) error {
	if !kind.IsSignal() {
		return ErrNotSignal
	}
	conn, ok := f.Conns.Get(to)
	if !ok {
		log.Debug().Str("module", "app.forwarder").Str("from", string(from)).Str("to", string(to)).Str("kind", string(kind)).Msg("stale target, dropped")
		return ErrStaleTarget
	}
	return conn.TrySend(core.Frame(protocol.SignalFrame(kind, from, payload)))
}
