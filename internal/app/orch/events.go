package orch

import (
	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
)

// Outbound event names.
const (
	EvExistingRooms          = "existingRooms"
	EvSearchResult           = "searchResult"
	EvRoomCreated            = "roomCreated"
	EvRoomUpdated            = "roomUpdated"
	EvRoomRemoved            = "roomRemoved"
	EvRoomJoined             = "roomJoined"
	EvRoomLeft               = "roomLeft"
	EvMemberList             = "memberList"
	EvMemberJoined           = "memberJoined"
	EvMemberLeft             = "memberLeft"
	EvTyping                 = "typing"
	EvMessage                = "message"
	EvBirthdayMessage        = "birthdayMessage"
	EvUserBanned             = "userBanned"
	EvThumbsDownCount        = "thumbsDownCountUpdated"
	EvVotingDisabled         = "votingDisabled"
	EvUserVotedOut           = "userVotedOut"
	EvRemovedFromRoom        = "removedFromRoom"
	EvUserRemovedByModerator = "userRemovedByModerator"
	EvUpdateCounts           = "updateCounts"
	EvError                  = "error"
	EvOffensiveWord          = "offensiveWordError"
	EvRoomFull               = "roomFull"
	EvRoomNotFound           = "roomNotFound"
	EvDuplicateUser          = "duplicateUser"
	EvPong                   = "pong"
)

const (
	ReasonVotedOut  = "voted_out"
	ReasonModerator = "removed_by_moderator"
)

type RoomRemovedEvent struct {
	RoomID domain.RoomID `json:"roomId"`
}

type RoomJoinedEvent struct {
	RoomID   domain.RoomID     `json:"roomId"`
	RoomName string            `json:"roomName"`
	RoomType domain.Visibility `json:"roomType"`
	Layout   domain.Layout     `json:"layout,omitempty"`
	core.MemberDTO
}

type RoomLeftEvent struct {
	RoomID domain.RoomID `json:"roomId"`
}

type MemberListEvent struct {
	RoomID  domain.RoomID         `json:"roomId"`
	Members []core.MemberDTO      `json:"members"`
	Votes   map[domain.UserID]int `json:"votes"`
}

type MemberJoinedEvent struct {
	RoomID domain.RoomID `json:"roomId"`
	core.MemberDTO
}

type MemberLeftEvent struct {
	RoomID domain.RoomID `json:"roomId"`
	UserID domain.UserID `json:"userId"`
}

// TextEvent carries both live typing state and committed messages.
type TextEvent struct {
	RoomID domain.RoomID `json:"roomId"`
	UserID domain.UserID `json:"userId"`
	Text   string        `json:"text"`
	Color  string        `json:"color,omitempty"`
}

type BirthdayEvent struct {
	RoomID      domain.RoomID `json:"roomId"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
}

// UserBannedEvent carries the expiration in unix milliseconds.
type UserBannedEvent struct {
	ExpiresAt int64 `json:"expiresAt"`
}

type ThumbsDownCountEvent struct {
	RoomID domain.RoomID `json:"roomId"`
	UserID domain.UserID `json:"userId"`
	Count  int           `json:"count"`
}

type VotingDisabledEvent struct {
	Reason string `json:"reason"`
}

// MemberNoticeEvent announces a pending or completed removal to the room.
type MemberNoticeEvent struct {
	RoomID      domain.RoomID `json:"roomId"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
}

type RemovedFromRoomEvent struct {
	RoomID domain.RoomID `json:"roomId"`
	Reason string        `json:"reason"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomErrorEvent answers a join that could not complete.
type RoomErrorEvent struct {
	RoomID  domain.RoomID `json:"roomId,omitempty"`
	Message string        `json:"message"`
}
