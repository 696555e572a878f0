package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Keystroke/internal/app/orch"
	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
)

// replyError turns a failed request into exactly one event for the sender.
func (ctl *SignalWSController) replyError(sid core.SessionID, c *WsSignalConn, err error) {
	var (
		banErr    *domain.BanError
		votingErr *domain.VotingDisabledError
	)
	switch {
	case errors.As(err, &banErr):
		ctl.sendJSON(c, orch.EvUserBanned, orch.UserBannedEvent{ExpiresAt: banErr.ExpiresAt.UnixMilli()})
	case errors.As(err, &votingErr):
		ctl.sendJSON(c, orch.EvVotingDisabled, orch.VotingDisabledEvent{Reason: votingErr.Reason})
	case errors.Is(err, domain.ErrOffensiveContent):
		ctl.sendJSON(c, orch.EvOffensiveWord, orch.ErrorEvent{Code: "offensive_content", Message: "Input contains offensive words"})
	case errors.Is(err, domain.ErrRoomFull):
		ctl.sendJSON(c, orch.EvRoomFull, orch.RoomErrorEvent{Message: "Room is full."})
	case errors.Is(err, domain.ErrRoomNotFound):
		ctl.sendJSON(c, orch.EvRoomNotFound, orch.RoomErrorEvent{Message: "Room not found."})
	case errors.Is(err, domain.ErrDuplicateMember):
		ctl.sendJSON(c, orch.EvDuplicateUser, orch.RoomErrorEvent{Message: "You are already in this room."})
	case errors.Is(err, domain.ErrInvalidInput):
		ctl.sendError(c, "invalid_input", err.Error())
	case errors.Is(err, domain.ErrNotMember):
		ctl.sendError(c, "not_member", "You are not a member of this room.")
	case errors.Is(err, domain.ErrForbidden):
		ctl.sendError(c, "forbidden", "Only moderators can do that.")
	case errors.Is(err, errUnknownEvent):
		ctl.sendError(c, "unknown_event", err.Error())
	default:
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("request failed")
		ctl.sendError(c, "internal", "internal error")
	}
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, code, message string) {
	ctl.sendJSON(c, orch.EvError, orch.ErrorEvent{Code: code, Message: message})
}
