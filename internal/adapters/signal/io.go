package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Keystroke/internal/app/orch"
	"github.com/dkeye/Keystroke/internal/core"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.settings.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			ctl.flush(c)
			return
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.settings.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if !ok {
				writeClose(c)
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.settings.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

// flush writes whatever is already queued, then the close message.
func (ctl *SignalWSController) flush(c *WsSignalConn) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(ctl.settings.WriteTimeout))
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				writeClose(c)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			writeClose(c)
			return
		}
	}
}

func writeClose(c *WsSignalConn) {
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		ctl.limiter.Forget(sid)
		c.Close()
		cancel()
	}()

	pongWait := ctl.settings.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(sid, c, data)
		}
	}
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	var env inbound
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		ctl.sendError(c, "bad_payload", "malformed event")
		return
	}
	if !ctl.limiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", env.Type).Msg("rate limited")
		ctl.sendError(c, "rate_limited", "too many events")
		return
	}

	var err error
	switch env.Type {
	case "identify":
		err = ctl.handleIdentify(sid, env.Payload)
	case "userDisconnected":
		err = ctl.handleUserGone(sid, env.Payload)
	case "listRooms":
		ctl.Orch.ListRooms(sid)
	case "searchRoom":
		err = ctl.handleSearchRoom(sid, env.Payload)
	case "createRoom":
		err = ctl.handleCreateRoom(sid, env.Payload)
	case "joinRoom":
		err = ctl.handleJoinRoom(sid, env.Payload)
	case "leaveRoom":
		err = ctl.handleLeaveRoom(sid, env.Payload)
	case "typing":
		err = ctl.handleTyping(sid, env.Payload)
	case "message":
		err = ctl.handleMessage(sid, env.Payload)
	case "thumbsDown":
		err = ctl.handleThumbsDown(sid, env.Payload)
	case "removeUser":
		err = ctl.handleRemoveUser(sid, env.Payload)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		err = errUnknownEvent
	}
	if err != nil {
		ctl.replyError(sid, c, err)
	}
}

var errUnknownEvent = errors.New("unknown event type")

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, evType string, payload any) {
	frame, err := orch.Encode(evType, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(frame)
}
