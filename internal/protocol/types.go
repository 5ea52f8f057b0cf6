// Package protocol defines the JSON frames exchanged over the relay sockets.
//
// Every frame is an object with a "type" discriminator. Inbound frames are
// decoded into one concrete struct per event; anything that does not parse
// or lacks a required field is rejected with ErrMalformedEvent.
package protocol

type Type string

// Inbound, chat relay.
const (
	TypeJoinRoom    Type = "join-room"
	TypeLeaveRoom   Type = "leave-room"
	TypeSendMessage Type = "send-message"
	TypeTyping      Type = "typing"
)

// Inbound, stream relay.
const (
	TypeStartStream   Type = "start-stream"
	TypeJoinStream    Type = "join-stream"
	TypeOffer         Type = "offer"
	TypeAnswer        Type = "answer"
	TypeICECandidate  Type = "ice-candidate"
	TypeStreamMessage Type = "stream-message"
	TypeEndStream     Type = "end-stream"
)

// Outbound.
const (
	TypeWelcome        Type = "welcome"
	TypeMessageHistory Type = "message-history"
	TypeReceiveMessage Type = "receive-message"
	TypeUserJoined     Type = "user-joined"
	TypeUserLeft       Type = "user-left"
	TypeUserTyping     Type = "user-typing"
	TypeViewerJoined   Type = "viewer-joined"
	TypeStreamEnded    Type = "stream-ended"
	TypeError          Type = "error"
	TypePong           Type = "pong"
)

// Both directions.
const TypePing Type = "ping"

// IsSignal reports whether t is one of the point-to-point WebRTC kinds.
func (t Type) IsSignal() bool {
	return t == TypeOffer || t == TypeAnswer || t == TypeICECandidate
}

// payloadKey is the field a signaling kind carries its payload in.
func (t Type) payloadKey() string {
	switch t {
	case TypeOffer:
		return "offer"
	case TypeAnswer:
		return "answer"
	case TypeICECandidate:
		return "candidate"
	}
	return ""
}
