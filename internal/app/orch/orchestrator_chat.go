package orch

import (
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/rs/zerolog/log"
)

// JoinRoom delivers the room history to the joiner before anyone else learns
// about the join; both happen under the room lock.
func (o *Orchestrator) JoinRoom(sid domain.ConnID, e protocol.JoinRoom) {
	id, err := domain.NewIdentity(string(e.UserID), e.UserName)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("join-room rejected")
		return
	}
	o.Registry.Register(sid, id)

	roomID := domain.RoomID(e.RoomID)
	room := o.Rooms.GetOrCreate(roomID)
	var res core.PublishResult
	room.Join(domain.NewMember(sid, id), func(history []domain.Message, others []domain.Member, added bool) {
		res.Merge(o.Dispatch.Send(sid, core.Frame(protocol.MessageHistory(history))))
		if added {
			res.Merge(o.Dispatch.PublishMembers(others, sid, core.Frame(protocol.UserJoined(id))))
		}
	})
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Str("username", id.Name).Msg("joined room")
	o.applyPolicy(res)
}

func (o *Orchestrator) LeaveRoom(sid domain.ConnID, roomID domain.RoomID) {
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return
	}
	var res core.PublishResult
	room.Leave(sid, func(left domain.Member, others []domain.Member) {
		res = o.Dispatch.PublishMembers(others, sid, core.Frame(protocol.UserLeft(left.Identity)))
	})
	o.applyPolicy(res)
}

// SendMessage stores the message and echoes the stored copy to every member,
// the sender included.
func (o *Orchestrator) SendMessage(sid domain.ConnID, e protocol.SendMessage) {
	room, ok := o.Rooms.Get(domain.RoomID(e.RoomID))
	if !ok {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("room", string(e.RoomID)).Msg("send-message to unknown room, dropped")
		return
	}
	msg := domain.Message{
		Text:       e.Message,
		Sender:     domain.UserID(e.Sender),
		SenderName: e.SenderName,
	}
	var res core.PublishResult
	room.Post(msg, func(stored domain.Message, members []domain.Member) {
		res = o.Dispatch.PublishMembers(members, "", core.Frame(protocol.ReceiveMessage(stored)))
	})
	o.applyPolicy(res)
}

func (o *Orchestrator) Typing(sid domain.ConnID, e protocol.Typing) {
	room, ok := o.Rooms.Get(domain.RoomID(e.RoomID))
	if !ok {
		return
	}
	var res core.PublishResult
	room.WithMembers(func(members []domain.Member) {
		res = o.Dispatch.PublishMembers(members, sid, core.Frame(protocol.UserTyping(e.UserName)))
	})
	o.applyPolicy(res)
}

func (o *Orchestrator) leaveAllRooms(sid domain.ConnID) core.PublishResult {
	var res core.PublishResult
	for _, room := range o.Rooms.Joined(sid) {
		room.Leave(sid, func(left domain.Member, others []domain.Member) {
			res.Merge(o.Dispatch.PublishMembers(others, sid, core.Frame(protocol.UserLeft(left.Identity))))
		})
	}
	return res
}
