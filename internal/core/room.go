package core

import (
	"fmt"

	"github.com/dkeye/Keystroke/internal/domain"
)

// Room is an in-memory room. It is not safe for concurrent use; the
// orchestrator serializes every access.
type Room struct {
	ID         domain.RoomID
	Name       string
	Visibility domain.Visibility
	Layout     domain.Layout

	capacity int
	members  []Member
	votes    map[domain.UserID]map[domain.UserID]struct{}
	birthday map[domain.UserID]struct{}

	lastToken uint64
	deletion  *pendingTask
	ejections map[domain.UserID]*pendingTask
}

// pendingTask pairs a timer with the token its callback was armed with, so a
// callback that lost the race against Stop can tell it is stale.
type pendingTask struct {
	timer Timer
	token uint64
}

type RoomDTO struct {
	ID          domain.RoomID     `json:"id"`
	Name        string            `json:"name"`
	Visibility  domain.Visibility `json:"type"`
	Layout      domain.Layout     `json:"layout,omitempty"`
	Members     []MemberDTO       `json:"users"`
	MemberCount int               `json:"userCount"`
	Capacity    int               `json:"capacity"`
}

func NewRoom(id domain.RoomID, name string, visibility domain.Visibility, layout domain.Layout, capacity int) *Room {
	return &Room{
		ID:         id,
		Name:       name,
		Visibility: visibility,
		Layout:     layout,
		capacity:   capacity,
		votes:      make(map[domain.UserID]map[domain.UserID]struct{}),
		birthday:   make(map[domain.UserID]struct{}),
		ejections:  make(map[domain.UserID]*pendingTask),
	}
}

func (r *Room) MemberCount() int { return len(r.members) }
func (r *Room) IsEmpty() bool    { return len(r.members) == 0 }
func (r *Room) IsFull() bool     { return len(r.members) >= r.capacity }

// Members returns members in join order.
func (r *Room) Members() []Member {
	out := make([]Member, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) Member(uid domain.UserID) (Member, bool) {
	for _, m := range r.members {
		if m.UserID == uid {
			return m, true
		}
	}
	return Member{}, false
}

func (r *Room) MemberBySession(sid SessionID) (Member, bool) {
	for _, m := range r.members {
		if m.SessionID == sid {
			return m, true
		}
	}
	return Member{}, false
}

// AddMember appends m, keeping userIds unique and membership within capacity.
func (r *Room) AddMember(m Member) error {
	if _, ok := r.Member(m.UserID); ok {
		return fmt.Errorf("room %s: %w", r.ID, domain.ErrDuplicateMember)
	}
	if r.IsFull() {
		return fmt.Errorf("room %s: %w", r.ID, domain.ErrRoomFull)
	}
	r.members = append(r.members, m)
	return nil
}

// RemoveMember drops uid together with every vote cast by or against it and
// any ejection armed for it. changed lists targets whose tally moved.
func (r *Room) RemoveMember(uid domain.UserID) (removed Member, changed []domain.UserID, ok bool) {
	idx := -1
	for i, m := range r.members {
		if m.UserID == uid {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Member{}, nil, false
	}
	removed = r.members[idx]
	r.members = append(r.members[:idx], r.members[idx+1:]...)

	delete(r.votes, uid)
	for target, voters := range r.votes {
		if _, voted := voters[uid]; voted {
			delete(voters, uid)
			changed = append(changed, target)
		}
		if len(voters) == 0 {
			delete(r.votes, target)
		}
	}
	r.CancelEjection(uid)
	return removed, changed, true
}

// ToggleVote retracts voter's vote for target if present; otherwise it moves
// voter's single standing vote in this room onto target.
func (r *Room) ToggleVote(voter, target domain.UserID) (changed []domain.UserID) {
	if voters, ok := r.votes[target]; ok {
		if _, voted := voters[voter]; voted {
			delete(voters, voter)
			if len(voters) == 0 {
				delete(r.votes, target)
			}
			return []domain.UserID{target}
		}
	}
	for other, voters := range r.votes {
		if _, voted := voters[voter]; voted {
			delete(voters, voter)
			if len(voters) == 0 {
				delete(r.votes, other)
			}
			changed = append(changed, other)
		}
	}
	if r.votes[target] == nil {
		r.votes[target] = make(map[domain.UserID]struct{})
	}
	r.votes[target][voter] = struct{}{}
	return append(changed, target)
}

func (r *Room) Tally(target domain.UserID) int { return len(r.votes[target]) }

// Tallies returns the vote count for every target with at least one vote.
func (r *Room) Tallies() map[domain.UserID]int {
	out := make(map[domain.UserID]int, len(r.votes))
	for target, voters := range r.votes {
		out[target] = len(voters)
	}
	return out
}

// Quorum is ceil(memberCount / 2).
func (r *Room) Quorum() int { return (len(r.members) + 1) / 2 }

// AcknowledgeBirthday reports true the first time uid triggers a celebration here.
func (r *Room) AcknowledgeBirthday(uid domain.UserID) bool {
	if _, done := r.birthday[uid]; done {
		return false
	}
	r.birthday[uid] = struct{}{}
	return true
}

// NextToken reserves a task token. Take it before scheduling the timer so the
// callback captures a value that never changes afterwards.
func (r *Room) NextToken() uint64 {
	r.lastToken++
	return r.lastToken
}

// ArmDeletion replaces any pending deletion with t. The callback of t must
// present token back to DeletionArmed when it fires.
func (r *Room) ArmDeletion(t Timer, token uint64) {
	r.CancelDeletion()
	r.deletion = &pendingTask{timer: t, token: token}
}

// CancelDeletion reports whether a deletion was pending.
func (r *Room) CancelDeletion() bool {
	if r.deletion == nil {
		return false
	}
	r.deletion.timer.Stop()
	r.deletion = nil
	return true
}

func (r *Room) DeletionArmed(token uint64) bool {
	return r.deletion != nil && r.deletion.token == token
}

func (r *Room) ArmEjection(target domain.UserID, t Timer, token uint64) {
	r.CancelEjection(target)
	r.ejections[target] = &pendingTask{timer: t, token: token}
}

func (r *Room) CancelEjection(target domain.UserID) bool {
	task, ok := r.ejections[target]
	if !ok {
		return false
	}
	task.timer.Stop()
	delete(r.ejections, target)
	return true
}

func (r *Room) EjectionPending(target domain.UserID) bool {
	_, ok := r.ejections[target]
	return ok
}

func (r *Room) EjectionArmed(target domain.UserID, token uint64) bool {
	task, ok := r.ejections[target]
	return ok && task.token == token
}

// ClearEjection forgets a fired ejection without stopping its timer.
func (r *Room) ClearEjection(target domain.UserID) {
	delete(r.ejections, target)
}

func (r *Room) DTO() RoomDTO {
	members := make([]MemberDTO, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m.DTO())
	}
	return RoomDTO{
		ID:          r.ID,
		Name:        r.Name,
		Visibility:  r.Visibility,
		Layout:      r.Layout,
		Members:     members,
		MemberCount: len(r.members),
		Capacity:    r.capacity,
	}
}
