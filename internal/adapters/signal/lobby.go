package signal

import (
	"encoding/json"

	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
)

type identifyPayload struct {
	UserID string `json:"userId" validate:"required,max=64"`
}

type searchRoomPayload struct {
	RoomID string `json:"roomId" validate:"required,max=20"`
}

func (ctl *SignalWSController) handleIdentify(sid core.SessionID, raw json.RawMessage) error {
	var p identifyPayload
	if err := ctl.decode(raw, &p); err != nil {
		return err
	}
	return ctl.Orch.Identify(sid, domain.UserID(p.UserID))
}

func (ctl *SignalWSController) handleUserGone(sid core.SessionID, raw json.RawMessage) error {
	var p identifyPayload
	if err := ctl.decode(raw, &p); err != nil {
		return err
	}
	ctl.Orch.UserGone(sid, domain.UserID(p.UserID))
	return nil
}

func (ctl *SignalWSController) handleSearchRoom(sid core.SessionID, raw json.RawMessage) error {
	var p searchRoomPayload
	if err := ctl.decode(raw, &p); err != nil {
		return err
	}
	ctl.Orch.SearchRoom(sid, domain.RoomID(p.RoomID))
	return nil
}
