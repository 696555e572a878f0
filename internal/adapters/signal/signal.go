package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Keystroke/internal/app/orch"
	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
)

// ModProofKey is the gin context key holding the user id whose moderator
// code was verified on the HTTP session.
const ModProofKey = "mod_user"

type Settings struct {
	ReadLimit    int64
	SendBuffer   int
	WriteTimeout time.Duration
	PingPeriod   time.Duration
	RateEvents   int
	RateInterval time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		ReadLimit:    32768,
		SendBuffer:   64,
		WriteTimeout: 5 * time.Second,
		PingPeriod:   54 * time.Second,
		RateEvents:   40,
		RateInterval: time.Second,
	}
}

type SignalWSController struct {
	Orch     *orch.Orchestrator
	settings Settings
	validate *validator.Validate
	limiter  *RoomRateLimiter
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, settings Settings, checkOrigin func(r *http.Request) bool) *SignalWSController {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &SignalWSController{
		Orch:     o,
		settings: settings,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limiter:  NewRoomRateLimiter(settings.RateEvents, settings.RateInterval, nil),
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

var _ core.SignalConnection = (*WsSignalConn)(nil)

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// Close stops accepting frames. The write pump flushes what is queued, sends
// a close message and then closes the socket.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	proof := domain.UserID(c.GetString(ModProofKey))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.settings.ReadLimit)

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.settings.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(sid, conn, cancel, proof)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
