package domain

// ConnID is the opaque connection identifier assigned by the transport.
type ConnID string

// Member represents a connection's participation in a room.
// No transport or lifecycle logic here.
type Member struct {
	Conn     ConnID
	Identity Identity
}

func NewMember(conn ConnID, id Identity) Member {
	return Member{Conn: conn, Identity: id}
}
