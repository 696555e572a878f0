package signal

import "github.com/dkeye/Keystroke/internal/app/orch"

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, orch.EvPong, nil)
}
