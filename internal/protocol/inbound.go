package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/Relay/internal/domain"
)

var ErrMalformedEvent = errors.New("malformed event")

// Event is one decoded inbound frame.
type Event interface {
	Type() Type
	validate() error
}

// ID accepts both JSON strings and numbers; clients use either for room,
// stream and user ids.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number")
	}
	*id = ID(n.String())
	return nil
}

type JoinRoom struct {
	RoomID   ID     `json:"roomId"`
	UserID   ID     `json:"userId"`
	UserName string `json:"userName"`
}

func (JoinRoom) Type() Type { return TypeJoinRoom }
func (e JoinRoom) validate() error {
	if err := required("roomId", string(e.RoomID)); err != nil {
		return err
	}
	return fitsIdentity("userId", string(e.UserID), "userName", e.UserName)
}

type LeaveRoom struct {
	RoomID ID `json:"roomId"`
}

func (LeaveRoom) Type() Type { return TypeLeaveRoom }
func (e LeaveRoom) validate() error {
	return required("roomId", string(e.RoomID))
}

type SendMessage struct {
	RoomID     ID     `json:"roomId"`
	Message    string `json:"message"`
	Sender     ID     `json:"sender"`
	SenderName string `json:"senderName"`
}

func (SendMessage) Type() Type { return TypeSendMessage }
func (e SendMessage) validate() error {
	return required("roomId", string(e.RoomID), "message", e.Message)
}

type Typing struct {
	RoomID   ID     `json:"roomId"`
	UserName string `json:"userName"`
}

func (Typing) Type() Type { return TypeTyping }
func (e Typing) validate() error {
	return required("roomId", string(e.RoomID))
}

type StartStream struct {
	StreamID     ID     `json:"streamId"`
	StreamerName string `json:"streamerName"`
}

func (StartStream) Type() Type { return TypeStartStream }
func (e StartStream) validate() error {
	if err := required("streamId", string(e.StreamID)); err != nil {
		return err
	}
	return fitsIdentity("", "", "streamerName", e.StreamerName)
}

type JoinStream struct {
	StreamID ID `json:"streamId"`
	ViewerID ID `json:"viewerId"`
}

func (JoinStream) Type() Type { return TypeJoinStream }
func (e JoinStream) validate() error {
	if err := required("streamId", string(e.StreamID)); err != nil {
		return err
	}
	return fitsIdentity("viewerId", string(e.ViewerID), "", "")
}

// Signal is an offer, answer or ICE candidate addressed to one connection.
// The payload is kept verbatim and never interpreted.
type Signal struct {
	Kind    Type
	To      ID
	Payload json.RawMessage
}

func (e Signal) Type() Type { return e.Kind }
func (e Signal) validate() error {
	if err := required("to", string(e.To)); err != nil {
		return err
	}
	if len(e.Payload) == 0 || bytes.Equal(e.Payload, []byte("null")) {
		return fmt.Errorf("%w: missing %s", ErrMalformedEvent, e.Kind.payloadKey())
	}
	return nil
}

type StreamMessage struct {
	StreamID ID     `json:"streamId"`
	Message  string `json:"message"`
	Sender   ID     `json:"sender"`
}

func (StreamMessage) Type() Type { return TypeStreamMessage }
func (e StreamMessage) validate() error {
	return required("streamId", string(e.StreamID), "message", e.Message)
}

type EndStream struct {
	StreamID ID `json:"streamId"`
}

func (EndStream) Type() Type { return TypeEndStream }
func (e EndStream) validate() error {
	return required("streamId", string(e.StreamID))
}

type Ping struct{}

func (Ping) Type() Type       { return TypePing }
func (Ping) validate() error { return nil }

// Decode parses one inbound frame. Every failure wraps ErrMalformedEvent.
func Decode(data []byte) (Event, error) {
	var env struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var ev Event
	switch env.Type {
	case TypeJoinRoom:
		ev = &JoinRoom{}
	case TypeLeaveRoom:
		ev = &LeaveRoom{}
	case TypeSendMessage:
		ev = &SendMessage{}
	case TypeTyping:
		ev = &Typing{}
	case TypeStartStream:
		ev = &StartStream{}
	case TypeJoinStream:
		ev = &JoinStream{}
	case TypeStreamMessage:
		ev = &StreamMessage{}
	case TypeEndStream:
		ev = &EndStream{}
	case TypePing:
		return Ping{}, nil
	case TypeOffer, TypeAnswer, TypeICECandidate:
		return decodeSignal(env.Type, data)
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, env.Type)
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := ev.validate(); err != nil {
		return nil, err
	}
	return deref(ev), nil
}

func decodeSignal(kind Type, data []byte) (Event, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	sig := Signal{Kind: kind}
	if to, ok := raw["to"]; ok {
		if err := json.Unmarshal(to, &sig.To); err != nil {
			return nil, fmt.Errorf("%w: to: %v", ErrMalformedEvent, err)
		}
	}
	sig.Payload = raw[kind.payloadKey()]
	if len(sig.Payload) == 0 {
		sig.Payload = raw["payload"]
	}
	if err := sig.validate(); err != nil {
		return nil, err
	}
	return sig, nil
}

// deref hands out values so handlers can switch on concrete types.
func deref(ev Event) Event {
	switch e := ev.(type) {
	case *JoinRoom:
		return *e
	case *LeaveRoom:
		return *e
	case *SendMessage:
		return *e
	case *Typing:
		return *e
	case *StartStream:
		return *e
	case *JoinStream:
		return *e
	case *StreamMessage:
		return *e
	case *EndStream:
		return *e
	}
	return ev
}

// required takes name/value pairs and fails on the first blank value.
func required(kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if strings.TrimSpace(kv[i+1]) == "" {
			return fmt.Errorf("%w: missing %s", ErrMalformedEvent, kv[i])
		}
	}
	return nil
}

// fitsIdentity applies the domain length limits to the declared user id and name.
func fitsIdentity(idKey, id, nameKey, name string) error {
	if len(id) > domain.MaxUserIDLen {
		return fmt.Errorf("%w: %s longer than %d", ErrMalformedEvent, idKey, domain.MaxUserIDLen)
	}
	if len(name) > domain.MaxUsernameLen {
		return fmt.Errorf("%w: %s longer than %d", ErrMalformedEvent, nameKey, domain.MaxUsernameLen)
	}
	return nil
}
