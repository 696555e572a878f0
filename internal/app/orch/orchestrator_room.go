package orch

import (
	"fmt"

	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
	"github.com/dkeye/Keystroke/internal/storage/journal"
	"github.com/rs/zerolog/log"
)

type CreateRoomRequest struct {
	UserID     domain.UserID
	Profile    domain.Profile
	RoomName   string
	Visibility domain.Visibility
	Layout     domain.Layout
}

type JoinRoomRequest struct {
	RoomID  domain.RoomID
	UserID  domain.UserID
	Profile domain.Profile
}

func (o *Orchestrator) CreateRoom(sid core.SessionID, req CreateRoomRequest) (core.RoomDTO, error) {
	o.lock()
	defer o.unlock()

	if err := req.UserID.Validate(); err != nil {
		return core.RoomDTO{}, err
	}
	if err := req.Profile.Validate(); err != nil {
		return core.RoomDTO{}, err
	}
	if err := domain.ValidateField("roomName", req.RoomName); err != nil {
		return core.RoomDTO{}, err
	}
	if !req.Visibility.Valid() {
		return core.RoomDTO{}, fmt.Errorf("visibility %q: %w", req.Visibility, domain.ErrInvalidInput)
	}
	if !req.Layout.Valid() {
		return core.RoomDTO{}, fmt.Errorf("layout %q: %w", req.Layout, domain.ErrInvalidInput)
	}
	if err := o.bans.Check(req.UserID); err != nil {
		return core.RoomDTO{}, err
	}
	if o.offensive(req.RoomName, req.Profile.DisplayName, req.Profile.Location) {
		return core.RoomDTO{}, fmt.Errorf("create room: %w", domain.ErrOffensiveContent)
	}
	if err := o.registry.CanIdentify(sid, req.UserID); err != nil {
		return core.RoomDTO{}, err
	}

	room, err := o.rooms.CreateRoom(req.RoomName, req.Visibility, req.Layout)
	if err != nil {
		return core.RoomDTO{}, err
	}
	member := core.Member{
		UserID:      req.UserID,
		SessionID:   sid,
		Profile:     req.Profile,
		IsModerator: o.isModerator(sid, req.UserID),
	}
	if err := room.AddMember(member); err != nil {
		o.rooms.StopRoom(room.ID)
		return core.RoomDTO{}, err
	}
	o.bindIdentityLocked(sid, req.UserID)
	log.Info().Str("module", "app.orch").
		Str("room", string(room.ID)).
		Str("user", string(req.UserID)).
		Str("visibility", string(room.Visibility)).
		Msg("room created")

	dto := room.DTO()
	if room.Visibility != domain.VisibilitySecret {
		o.sendAll(EvRoomCreated, dto, sid)
	}
	o.broadcastRoomUpdatedLocked(room)
	o.sendJoinedLocked(room, member)
	o.record(journal.Entry{Kind: journal.KindRoomCreated, RoomID: room.ID, UserID: req.UserID, Detail: string(room.Visibility)})
	o.publishCountsLocked()
	return dto, nil
}

func (o *Orchestrator) JoinRoom(sid core.SessionID, req JoinRoomRequest) (core.RoomDTO, error) {
	o.lock()
	defer o.unlock()

	if err := domain.ValidateField("roomId", string(req.RoomID)); err != nil {
		return core.RoomDTO{}, err
	}
	if err := req.UserID.Validate(); err != nil {
		return core.RoomDTO{}, err
	}
	if err := req.Profile.Validate(); err != nil {
		return core.RoomDTO{}, err
	}
	if err := o.bans.Check(req.UserID); err != nil {
		return core.RoomDTO{}, err
	}
	if o.offensive(req.Profile.DisplayName, req.Profile.Location) {
		return core.RoomDTO{}, fmt.Errorf("join room: %w", domain.ErrOffensiveContent)
	}
	room, ok := o.rooms.GetRoom(req.RoomID)
	if !ok {
		return core.RoomDTO{}, fmt.Errorf("room %s: %w", req.RoomID, domain.ErrRoomNotFound)
	}
	if err := o.registry.CanIdentify(sid, req.UserID); err != nil {
		return core.RoomDTO{}, err
	}

	member := core.Member{
		UserID:      req.UserID,
		SessionID:   sid,
		Profile:     req.Profile,
		IsModerator: o.isModerator(sid, req.UserID),
	}
	if err := room.AddMember(member); err != nil {
		return core.RoomDTO{}, err
	}
	o.bindIdentityLocked(sid, req.UserID)
	if room.CancelDeletion() {
		log.Info().Str("module", "app.orch").Str("room", string(room.ID)).Msg("room deletion cancelled by rejoin")
	}
	log.Info().Str("module", "app.orch").
		Str("room", string(room.ID)).
		Str("user", string(req.UserID)).
		Int("members", room.MemberCount()).
		Msg("member joined")

	o.sendRoom(room, EvMemberJoined, MemberJoinedEvent{RoomID: room.ID, MemberDTO: member.DTO()}, sid)
	o.broadcastRoomUpdatedLocked(room)
	o.sendJoinedLocked(room, member)
	o.publishCountsLocked()
	return room.DTO(), nil
}

func (o *Orchestrator) LeaveRoom(sid core.SessionID, roomID domain.RoomID, uid domain.UserID) error {
	o.lock()
	defer o.unlock()

	room, ok := o.rooms.GetRoom(roomID)
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, domain.ErrRoomNotFound)
	}
	m, ok := room.Member(uid)
	if !ok || m.SessionID != sid {
		return fmt.Errorf("leave room %s: %w", roomID, domain.ErrNotMember)
	}
	o.removeMemberLocked(room, uid)
	o.send(sid, EvRoomLeft, RoomLeftEvent{RoomID: roomID})
	o.publishCountsLocked()
	return nil
}

// bindIdentityLocked ties uid to an unidentified session once it holds a
// seat. CanIdentify has already vetted the pair under the same lock.
func (o *Orchestrator) bindIdentityLocked(sid core.SessionID, uid domain.UserID) {
	if err := o.registry.Identify(sid, uid); err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("sid", string(sid)).Msg("bind identity")
	}
}

func (o *Orchestrator) offensive(texts ...string) bool {
	for _, t := range texts {
		if o.filter.IsOffensive(t) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) sendJoinedLocked(room *core.Room, m core.Member) {
	o.send(m.SessionID, EvRoomJoined, RoomJoinedEvent{
		RoomID:    room.ID,
		RoomName:  room.Name,
		RoomType:  room.Visibility,
		Layout:    room.Layout,
		MemberDTO: m.DTO(),
	})
	o.send(m.SessionID, EvMemberList, memberList(room))
}

func memberList(room *core.Room) MemberListEvent {
	members := room.Members()
	dtos := make([]core.MemberDTO, 0, len(members))
	for _, m := range members {
		dtos = append(dtos, m.DTO())
	}
	return MemberListEvent{RoomID: room.ID, Members: dtos, Votes: room.Tallies()}
}

// broadcastRoomUpdatedLocked tells everyone about public and private rooms;
// a secret room is only described to its own members.
func (o *Orchestrator) broadcastRoomUpdatedLocked(room *core.Room) {
	if room.Visibility == domain.VisibilitySecret {
		o.sendRoom(room, EvRoomUpdated, room.DTO())
		return
	}
	o.sendAll(EvRoomUpdated, room.DTO())
}

// removeMemberLocked is the single leave path shared by explicit leave,
// disconnect, ejection and moderator removal.
func (o *Orchestrator) removeMemberLocked(room *core.Room, uid domain.UserID) (core.Member, bool) {
	removed, changed, ok := room.RemoveMember(uid)
	if !ok {
		return core.Member{}, false
	}
	log.Info().Str("module", "app.orch").
		Str("room", string(room.ID)).
		Str("user", string(uid)).
		Int("members", room.MemberCount()).
		Msg("member left")

	o.sendRoom(room, EvMemberLeft, MemberLeftEvent{RoomID: room.ID, UserID: uid})
	for _, target := range changed {
		o.sendRoom(room, EvThumbsDownCount, ThumbsDownCountEvent{RoomID: room.ID, UserID: target, Count: room.Tally(target)})
	}
	o.broadcastRoomUpdatedLocked(room)

	if room.IsEmpty() {
		o.scheduleDeletionLocked(room)
		return removed, true
	}
	// a smaller room needs fewer votes for a majority
	for target := range room.Tallies() {
		o.checkQuorumLocked(room, target)
	}
	return removed, true
}

func (o *Orchestrator) scheduleDeletionLocked(room *core.Room) {
	id := room.ID
	token := room.NextToken()
	timer := o.scheduler.AfterFunc(o.settings.DeletionGrace, func() {
		o.expireRoom(id, token)
	})
	room.ArmDeletion(timer, token)
	log.Info().Str("module", "app.orch").
		Str("room", string(id)).
		Dur("grace", o.settings.DeletionGrace).
		Msg("room deletion scheduled")
}

func (o *Orchestrator) expireRoom(id domain.RoomID, token uint64) {
	o.lock()
	defer o.unlock()

	room, ok := o.rooms.GetRoom(id)
	if !ok || !room.DeletionArmed(token) || !room.IsEmpty() {
		return
	}
	o.rooms.StopRoom(id)
	log.Info().Str("module", "app.orch").Str("room", string(id)).Int("rooms", o.rooms.Len()).Msg("room deleted")

	if room.Visibility != domain.VisibilitySecret {
		o.sendAll(EvRoomRemoved, RoomRemovedEvent{RoomID: id})
	}
	o.record(journal.Entry{Kind: journal.KindRoomDeleted, RoomID: id})
	o.publishCountsLocked()
}
