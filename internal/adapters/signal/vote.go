package signal

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
)

type thumbsDownPayload struct {
	RoomID       string `json:"roomId" validate:"required,max=20"`
	TargetUserID string `json:"targetUserId" validate:"required,max=64"`
}

type removeUserPayload struct {
	RoomID        string `json:"roomId" validate:"required,max=20"`
	TargetUserID  string `json:"targetUserId" validate:"required,max=64"`
	BanDurationMs int64  `json:"banDurationMs" validate:"gt=0,lte=31536000000"`
}

func (ctl *SignalWSController) handleThumbsDown(sid core.SessionID, raw json.RawMessage) error {
	var p thumbsDownPayload
	if err := ctl.decode(raw, &p); err != nil {
		return err
	}
	return ctl.Orch.ThumbsDown(sid, domain.RoomID(p.RoomID), domain.UserID(p.TargetUserID))
}

func (ctl *SignalWSController) handleRemoveUser(sid core.SessionID, raw json.RawMessage) error {
	var p removeUserPayload
	if err := ctl.decode(raw, &p); err != nil {
		return err
	}
	banFor := time.Duration(p.BanDurationMs) * time.Millisecond
	return ctl.Orch.RemoveUser(sid, domain.RoomID(p.RoomID), domain.UserID(p.TargetUserID), banFor)
}
