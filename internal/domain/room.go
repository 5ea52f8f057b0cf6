package domain

type (
	RoomID   string
	StreamID string
)

type RoomInfo struct {
	ID           RoomID `json:"id"`
	MemberCount  int    `json:"member_count"`
	MessageCount int    `json:"message_count"`
}

type StreamInfo struct {
	ID              StreamID `json:"id"`
	BroadcasterName string   `json:"broadcaster_name"`
	ViewerCount     int      `json:"viewer_count"`
}
