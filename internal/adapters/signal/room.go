package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Keystroke/internal/app/orch"
	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
)

type createRoomPayload struct {
	DisplayName string `json:"displayName" validate:"required,max=20"`
	Location    string `json:"location" validate:"required,max=20"`
	UserID      string `json:"userId" validate:"required,max=64"`
	RoomName    string `json:"roomName" validate:"required,max=20"`
	Visibility  string `json:"visibility" validate:"required,oneof=public private secret"`
	Layout      string `json:"layout" validate:"omitempty,oneof=horizontal vertical"`
	Color       string `json:"color" validate:"omitempty,max=256"`
	Avatar      string `json:"avatar" validate:"omitempty,max=256"`
}

type joinRoomPayload struct {
	RoomID      string `json:"roomId" validate:"required,max=20"`
	DisplayName string `json:"displayName" validate:"required,max=20"`
	Location    string `json:"location" validate:"required,max=20"`
	UserID      string `json:"userId" validate:"required,max=64"`
	Color       string `json:"color" validate:"omitempty,max=256"`
	Avatar      string `json:"avatar" validate:"omitempty,max=256"`
}

type leaveRoomPayload struct {
	RoomID string `json:"roomId" validate:"required,max=20"`
	UserID string `json:"userId" validate:"required,max=64"`
}

func (ctl *SignalWSController) handleCreateRoom(sid core.SessionID, raw json.RawMessage) error {
	var p createRoomPayload
	if err := ctl.decode(raw, &p); err != nil {
		return err
	}
	room, err := ctl.Orch.CreateRoom(sid, orch.CreateRoomRequest{
		UserID: domain.UserID(p.UserID),
		Profile: domain.Profile{
			DisplayName: p.DisplayName,
			Location:    p.Location,
			Color:       p.Color,
			Avatar:      p.Avatar,
		},
		RoomName:   p.RoomName,
		Visibility: domain.Visibility(p.Visibility),
		Layout:     domain.Layout(p.Layout),
	})
	if err != nil {
		return err
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(room.ID)).Msg("createRoom")
	return nil
}

func (ctl *SignalWSController) handleJoinRoom(sid core.SessionID, raw json.RawMessage) error {
	var p joinRoomPayload
	if err := ctl.decode(raw, &p); err != nil {
		return err
	}
	_, err := ctl.Orch.JoinRoom(sid, orch.JoinRoomRequest{
		RoomID: domain.RoomID(p.RoomID),
		UserID: domain.UserID(p.UserID),
		Profile: domain.Profile{
			DisplayName: p.DisplayName,
			Location:    p.Location,
			Color:       p.Color,
			Avatar:      p.Avatar,
		},
	})
	return err
}

// handleLeaveRoom leaves one room; the connection stays open.
func (ctl *SignalWSController) handleLeaveRoom(sid core.SessionID, raw json.RawMessage) error {
	var p leaveRoomPayload
	if err := ctl.decode(raw, &p); err != nil {
		return err
	}
	return ctl.Orch.LeaveRoom(sid, domain.RoomID(p.RoomID), domain.UserID(p.UserID))
}
