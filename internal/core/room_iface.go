package core

import "github.com/dkeye/Relay/internal/domain"

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []domain.ConnID
}

// Merge folds another result into r.
func (r *PublishResult) Merge(o PublishResult) {
	r.SentTo += o.SentTo
	r.Dropped = append(r.Dropped, o.Dropped...)
}

// JoinFunc runs under the room lock right after a join.
// others excludes the joiner; added is false for a repeated join.
type JoinFunc func(history []domain.Message, others []domain.Member, added bool)

// LeaveFunc runs under the room lock after a member was actually removed.
type LeaveFunc func(left domain.Member, others []domain.Member)

// PostFunc runs under the room lock after the message was appended.
type PostFunc func(stored domain.Message, members []domain.Member)

// RoomService is the core-facing API of a chat room.
// It owns membership and history but never touches transport resources.
// Callbacks see a consistent snapshot: no other join/leave/post interleaves.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	MessageCount() int
	Has(sid domain.ConnID) bool

	Join(m domain.Member, fn JoinFunc)
	Leave(sid domain.ConnID, fn LeaveFunc) bool
	Post(msg domain.Message, fn PostFunc) domain.Message
	WithMembers(fn func(members []domain.Member))
	History() []domain.Message
}

// RoomDirectory maps room ids to rooms. Rooms are created lazily and kept
// after they empty out, together with their history.
type RoomDirectory interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	List() []domain.RoomInfo
	// Joined returns every room sid is currently a member of.
	Joined(sid domain.ConnID) []RoomService
}
