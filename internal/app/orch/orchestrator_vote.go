package orch

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
	"github.com/dkeye/Keystroke/internal/storage/journal"
)

const (
	reasonTooFewVoters = "Voting is disabled when there are fewer than 3 users in the room."
	reasonModerator    = "You cannot vote to remove a moderator."
)

// ThumbsDown toggles the caller's vote against target. A vote for a new
// target first retracts the caller's standing vote in the room.
func (o *Orchestrator) ThumbsDown(sid core.SessionID, roomID domain.RoomID, target domain.UserID) error {
	o.lock()
	defer o.unlock()

	room, ok := o.rooms.GetRoom(roomID)
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, domain.ErrRoomNotFound)
	}
	voter, ok := room.MemberBySession(sid)
	if !ok {
		return fmt.Errorf("vote in %s: %w", roomID, domain.ErrNotMember)
	}
	if voter.UserID == target {
		return fmt.Errorf("self vote: %w", domain.ErrInvalidInput)
	}
	targetMember, ok := room.Member(target)
	if !ok {
		return fmt.Errorf("vote target %s: %w", target, domain.ErrNotMember)
	}
	if room.MemberCount() < o.settings.VoteMinMembers {
		return &domain.VotingDisabledError{Reason: reasonTooFewVoters}
	}
	if targetMember.IsModerator {
		return &domain.VotingDisabledError{Reason: reasonModerator}
	}

	for _, changed := range room.ToggleVote(voter.UserID, target) {
		o.sendRoom(room, EvThumbsDownCount, ThumbsDownCountEvent{RoomID: roomID, UserID: changed, Count: room.Tally(changed)})
	}
	log.Info().Str("module", "app.orch").
		Str("room", string(roomID)).
		Str("voter", string(voter.UserID)).
		Str("target", string(target)).
		Int("tally", room.Tally(target)).
		Msg("thumbs down")
	o.checkQuorumLocked(room, target)
	return nil
}

// checkQuorumLocked arms the delayed ejection once target's tally reaches a
// majority. Once announced, the ejection is not withdrawn by later retractions.
func (o *Orchestrator) checkQuorumLocked(room *core.Room, target domain.UserID) {
	if room.EjectionPending(target) || room.MemberCount() < o.settings.VoteMinMembers {
		return
	}
	m, ok := room.Member(target)
	if !ok || m.IsModerator {
		return
	}
	if room.Tally(target) < room.Quorum() {
		return
	}

	o.sendRoom(room, EvUserVotedOut, MemberNoticeEvent{RoomID: room.ID, UserID: target, DisplayName: m.Profile.DisplayName})
	id := room.ID
	token := room.NextToken()
	timer := o.scheduler.AfterFunc(o.settings.EjectionDelay, func() {
		o.eject(id, target, token)
	})
	room.ArmEjection(target, timer, token)
	log.Info().Str("module", "app.orch").
		Str("room", string(id)).
		Str("target", string(target)).
		Dur("delay", o.settings.EjectionDelay).
		Msg("ejection scheduled")
}

func (o *Orchestrator) eject(id domain.RoomID, target domain.UserID, token uint64) {
	o.lock()
	defer o.unlock()

	room, ok := o.rooms.GetRoom(id)
	if !ok || !room.EjectionArmed(target, token) {
		return
	}
	room.ClearEjection(target)
	removed, ok := o.removeMemberLocked(room, target)
	if !ok {
		return
	}
	log.Info().Str("module", "app.orch").Str("room", string(id)).Str("target", string(target)).Msg("member voted out")
	o.send(removed.SessionID, EvRemovedFromRoom, RemovedFromRoomEvent{RoomID: id, Reason: ReasonVotedOut})
	o.record(journal.Entry{Kind: journal.KindEjection, RoomID: id, UserID: target})
	o.publishCountsLocked()
}

// RemoveUser lets a moderator eject target at once and ban it for banFor,
// capped at the configured maximum.
func (o *Orchestrator) RemoveUser(sid core.SessionID, roomID domain.RoomID, target domain.UserID, banFor time.Duration) error {
	o.lock()
	defer o.unlock()

	room, ok := o.rooms.GetRoom(roomID)
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, domain.ErrRoomNotFound)
	}
	requester, ok := room.MemberBySession(sid)
	if !ok {
		return fmt.Errorf("remove in %s: %w", roomID, domain.ErrNotMember)
	}
	if !o.isModerator(sid, requester.UserID) {
		return fmt.Errorf("remove user: %w", domain.ErrForbidden)
	}
	if requester.UserID == target {
		return fmt.Errorf("moderator cannot remove themselves: %w", domain.ErrInvalidInput)
	}
	if banFor <= 0 {
		return fmt.Errorf("ban duration must be positive: %w", domain.ErrInvalidInput)
	}
	victim, ok := room.Member(target)
	if !ok {
		return fmt.Errorf("remove target %s: %w", target, domain.ErrNotMember)
	}
	if banFor > o.settings.MaxBan {
		banFor = o.settings.MaxBan
	}

	expiresAt := o.bans.Ban(target, banFor)
	o.send(victim.SessionID, EvUserBanned, UserBannedEvent{ExpiresAt: expiresAt.UnixMilli()})
	o.sendRoom(room, EvUserRemovedByModerator, MemberNoticeEvent{RoomID: roomID, UserID: target, DisplayName: victim.Profile.DisplayName})
	o.removeMemberLocked(room, target)
	o.send(victim.SessionID, EvRemovedFromRoom, RemovedFromRoomEvent{RoomID: roomID, Reason: ReasonModerator})
	log.Info().Str("module", "app.orch").
		Str("room", string(roomID)).
		Str("moderator", string(requester.UserID)).
		Str("target", string(target)).
		Dur("ban", banFor).
		Msg("member removed by moderator")
	o.record(journal.Entry{
		Kind:    journal.KindModeratorRemoval,
		RoomID:  roomID,
		UserID:  target,
		ActorID: requester.UserID,
		Detail:  banFor.String(),
	})
	o.disconnectLocked(victim.SessionID, true)
	return nil
}
