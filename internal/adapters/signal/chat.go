package signal

import (
	"encoding/json"

	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
)

type typingPayload struct {
	RoomID string `json:"roomId" validate:"required,max=20"`
	UserID string `json:"userId" validate:"required,max=64"`
	Text   string `json:"text"`
	Color  string `json:"color" validate:"omitempty,max=256"`
}

type messagePayload struct {
	RoomID string `json:"roomId" validate:"required,max=20"`
	UserID string `json:"userId" validate:"required,max=64"`
	Text   string `json:"text" validate:"required"`
	Color  string `json:"color" validate:"omitempty,max=256"`
}

func (ctl *SignalWSController) handleTyping(sid core.SessionID, raw json.RawMessage) error {
	var p typingPayload
	if err := ctl.decode(raw, &p); err != nil {
		return err
	}
	return ctl.Orch.Typing(sid, domain.RoomID(p.RoomID), domain.UserID(p.UserID), p.Text, p.Color)
}

func (ctl *SignalWSController) handleMessage(sid core.SessionID, raw json.RawMessage) error {
	var p messagePayload
	if err := ctl.decode(raw, &p); err != nil {
		return err
	}
	return ctl.Orch.Message(sid, domain.RoomID(p.RoomID), domain.UserID(p.UserID), p.Text, p.Color)
}
