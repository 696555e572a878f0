package core

import "github.com/dkeye/Keystroke/internal/domain"

// Member is a user's presence within one room.
type Member struct {
	UserID      domain.UserID
	SessionID   SessionID
	Profile     domain.Profile
	IsModerator bool
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
	Location    string        `json:"location"`
	Color       string        `json:"color,omitempty"`
	Avatar      string        `json:"avatar,omitempty"`
	IsModerator bool          `json:"modMode"`
}

func (m Member) DTO() MemberDTO {
	return MemberDTO{
		UserID:      m.UserID,
		DisplayName: m.Profile.DisplayName,
		Location:    m.Profile.Location,
		Color:       m.Profile.Color,
		Avatar:      m.Profile.Avatar,
		IsModerator: m.IsModerator,
	}
}
