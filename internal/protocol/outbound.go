package protocol

import (
	"encoding/json"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// NotFoundMessage is the client-visible text for a join on a missing stream.
const NotFoundMessage = "Stream not found"

// MessageDTO is how a chat or stream message travels on the wire.
type MessageDTO struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Sender     string `json:"sender"`
	SenderName string `json:"senderName"`
	Timestamp  string `json:"timestamp"`
}

func NewMessageDTO(m domain.Message) MessageDTO {
	return MessageDTO{
		ID:         m.ID.String(),
		Text:       m.Text,
		Sender:     string(m.Sender),
		SenderName: m.SenderName,
		Timestamp:  m.Timestamp.UTC().Format(domain.TimestampLayout),
	}
}

type welcomeFrame struct {
	Type         Type   `json:"type"`
	ConnectionID string `json:"connectionId"`
}

type historyFrame struct {
	Type     Type         `json:"type"`
	Messages []MessageDTO `json:"messages"`
}

type messageFrame struct {
	Type    Type       `json:"type"`
	Message MessageDTO `json:"message"`
}

type userFrame struct {
	Type     Type   `json:"type"`
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName"`
}

type viewerFrame struct {
	Type     Type   `json:"type"`
	ViewerID string `json:"viewerId"`
}

type signalFrame struct {
	Type      Type            `json:"type"`
	From      string          `json:"from"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type streamEndedFrame struct {
	Type     Type   `json:"type"`
	StreamID string `json:"streamId"`
}

type errorFrame struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

type bareFrame struct {
	Type Type `json:"type"`
}

func Welcome(sid domain.ConnID) []byte {
	return encode(welcomeFrame{Type: TypeWelcome, ConnectionID: string(sid)})
}

func MessageHistory(msgs []domain.Message) []byte {
	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, NewMessageDTO(m))
	}
	return encode(historyFrame{Type: TypeMessageHistory, Messages: out})
}

func ReceiveMessage(m domain.Message) []byte {
	return encode(messageFrame{Type: TypeReceiveMessage, Message: NewMessageDTO(m)})
}

func UserJoined(id domain.Identity) []byte {
	return encode(userFrame{Type: TypeUserJoined, UserID: string(id.UserID), UserName: id.Name})
}

func UserLeft(id domain.Identity) []byte {
	return encode(userFrame{Type: TypeUserLeft, UserID: string(id.UserID), UserName: id.Name})
}

func UserTyping(name string) []byte {
	return encode(userFrame{Type: TypeUserTyping, UserName: name})
}

func ViewerJoined(sid domain.ConnID) []byte {
	return encode(viewerFrame{Type: TypeViewerJoined, ViewerID: string(sid)})
}

// SignalFrame tags the payload with its sender; the payload key follows the kind.
func SignalFrame(kind Type, from domain.ConnID, payload json.RawMessage) []byte {
	f := signalFrame{Type: kind, From: string(from)}
	switch kind {
	case TypeOffer:
		f.Offer = payload
	case TypeAnswer:
		f.Answer = payload
	case TypeICECandidate:
		f.Candidate = payload
	default:
		return nil
	}
	return encode(f)
}

func StreamMessageFrame(m domain.Message) []byte {
	return encode(messageFrame{Type: TypeStreamMessage, Message: NewMessageDTO(m)})
}

func StreamEnded(id domain.StreamID) []byte {
	return encode(streamEndedFrame{Type: TypeStreamEnded, StreamID: string(id)})
}

func Error(msg string) []byte {
	return encode(errorFrame{Type: TypeError, Message: msg})
}

func Pong() []byte {
	return encode(bareFrame{Type: TypePong})
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "protocol").Msg("encode frame")
		return nil
	}
	return b
}
