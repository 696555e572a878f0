// Package orch coordinates rooms, typing relay, votes and moderation.
//
// Every exported method takes the orchestrator mutex for its whole run, so
// handlers never interleave. Timer callbacks take the same mutex and
// re-validate state before acting.
package orch

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Keystroke/internal/app"
	"github.com/dkeye/Keystroke/internal/app/ban"
	"github.com/dkeye/Keystroke/internal/app/moderation"
	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
	"github.com/dkeye/Keystroke/internal/storage/journal"
)

type Settings struct {
	MaxTextLength  int
	DeletionGrace  time.Duration
	LobbySample    int
	VoteMinMembers int
	EjectionDelay  time.Duration
	ChatBan        time.Duration
	MaxBan         time.Duration
	Moderators     []domain.UserID
	ModCode        string
	RequireModCode bool
}

func DefaultSettings() Settings {
	return Settings{
		MaxTextLength:  500,
		DeletionGrace:  10 * time.Second,
		LobbySample:    20,
		VoteMinMembers: 3,
		EjectionDelay:  3 * time.Second,
		ChatBan:        30 * time.Second,
		MaxBan:         24 * time.Hour,
	}
}

type Options struct {
	Registry  *app.Registry
	Rooms     *core.RoomManager
	Policy    app.Policy
	Filter    *moderation.Filter
	Bans      *ban.Store
	Journal   journal.Journal
	Clock     core.Clock
	Scheduler core.Scheduler
	Settings  Settings
}

type Orchestrator struct {
	mu sync.Mutex

	registry  *app.Registry
	rooms     *core.RoomManager
	policy    app.Policy
	filter    *moderation.Filter
	bans      *ban.Store
	journal   journal.Journal
	clock     core.Clock
	scheduler core.Scheduler
	settings  Settings

	moderators map[domain.UserID]struct{}

	// sessions refused a frame during the current handler; kicked on unlock
	kicks     []core.SessionID
	kickQueue map[core.SessionID]struct{}
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		registry:   opts.Registry,
		rooms:      opts.Rooms,
		policy:     opts.Policy,
		filter:     opts.Filter,
		bans:       opts.Bans,
		journal:    opts.Journal,
		clock:      opts.Clock,
		scheduler:  opts.Scheduler,
		settings:   opts.Settings,
		moderators: make(map[domain.UserID]struct{}, len(opts.Settings.Moderators)),
		kickQueue:  make(map[core.SessionID]struct{}),
	}
	if o.registry == nil {
		o.registry = app.NewRegistry()
	}
	if o.rooms == nil {
		o.rooms = core.NewRoomManager(nil, domain.MaxRoomMembers)
	}
	if o.policy == nil {
		o.policy = app.SimplePolicy{}
	}
	if o.filter == nil {
		o.filter = moderation.NewFilter(moderation.Config{})
	}
	if o.clock == nil {
		o.clock = core.SystemClock()
	}
	if o.scheduler == nil {
		o.scheduler = core.SystemClock()
	}
	if o.bans == nil {
		o.bans = ban.NewStore(o.clock)
	}
	if o.journal == nil {
		o.journal = journal.Nop{}
	}
	for _, uid := range o.settings.Moderators {
		o.moderators[uid] = struct{}{}
	}
	return o
}

// Connect binds a new transport connection. modProof is the user id whose
// moderator code the HTTP session verified, or empty.
func (o *Orchestrator) Connect(sid core.SessionID, conn core.SignalConnection, cancel func(), modProof domain.UserID) {
	o.lock()
	defer o.unlock()
	o.registry.BindSignal(sid, conn, cancel, modProof)
}

// Disconnect treats a lost connection as a leave from every room it was in.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	o.lock()
	defer o.unlock()
	o.disconnectLocked(sid, false)
}

func (o *Orchestrator) lock() { o.mu.Lock() }

func (o *Orchestrator) unlock() {
	for len(o.kicks) > 0 {
		sid := o.kicks[0]
		o.kicks = o.kicks[1:]
		delete(o.kickQueue, sid)
		log.Warn().Str("module", "app.orch").Str("sid", string(sid)).Msg("kicking slow connection")
		o.disconnectLocked(sid, true)
	}
	o.mu.Unlock()
}

func (o *Orchestrator) disconnectLocked(sid core.SessionID, closeConn bool) {
	conn, bound := o.registry.GetSignal(sid)
	if !bound {
		return
	}
	if closeConn {
		// close first so the write pump flushes queued frames before the
		// cancelled context stops it
		conn.Close()
		o.registry.Cancel(sid)
	}
	o.registry.Unbind(sid)
	for _, room := range o.rooms.RoomsOfSession(sid) {
		if m, ok := room.MemberBySession(sid); ok {
			o.removeMemberLocked(room, m.UserID)
		}
	}
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Msg("session disconnected")
	o.publishCountsLocked()
}

func (o *Orchestrator) isModerator(sid core.SessionID, uid domain.UserID) bool {
	if _, ok := o.moderators[uid]; !ok {
		return false
	}
	return !o.settings.RequireModCode || o.registry.ModProof(sid) == uid
}

func (o *Orchestrator) record(e journal.Entry) {
	e.At = o.clock.Now()
	o.journal.Record(e)
}

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Encode builds the wire frame for one outbound event.
func Encode(evType string, payload any) (core.Frame, error) {
	return json.Marshal(envelope{Type: evType, Payload: payload})
}

func (o *Orchestrator) send(sid core.SessionID, evType string, payload any) {
	conn, ok := o.registry.GetSignal(sid)
	if !ok {
		return
	}
	frame, err := Encode(evType, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("type", evType).Msg("encode event")
		return
	}
	o.deliver(sid, conn, frame)
}

func (o *Orchestrator) deliver(sid core.SessionID, conn core.SignalConnection, frame core.Frame) {
	err := conn.TrySend(frame)
	if err == nil {
		return
	}
	switch o.policy.OnBackPressure(sid, err) {
	case app.KickMember:
		if _, queued := o.kickQueue[sid]; !queued {
			o.kickQueue[sid] = struct{}{}
			o.kicks = append(o.kicks, sid)
		}
	case app.DropFrame, app.NoAction:
	}
}

// sendRoom delivers to every current member of room except the listed sessions.
func (o *Orchestrator) sendRoom(room *core.Room, evType string, payload any, except ...core.SessionID) {
	frame, err := Encode(evType, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("type", evType).Msg("encode event")
		return
	}
	for _, m := range room.Members() {
		if slices.Contains(except, m.SessionID) {
			continue
		}
		if conn, ok := o.registry.GetSignal(m.SessionID); ok {
			o.deliver(m.SessionID, conn, frame)
		}
	}
}

func (o *Orchestrator) sendAll(evType string, payload any, except ...core.SessionID) {
	frame, err := Encode(evType, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("type", evType).Msg("encode event")
		return
	}
	for _, s := range o.registry.Sessions() {
		if slices.Contains(except, s.SID) {
			continue
		}
		o.deliver(s.SID, s.Signal, frame)
	}
}
