package orch_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Keystroke/internal/app"
	"github.com/dkeye/Keystroke/internal/app/ban"
	"github.com/dkeye/Keystroke/internal/app/moderation"
	"github.com/dkeye/Keystroke/internal/app/orch"
	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/core/coretest"
	"github.com/dkeye/Keystroke/internal/domain"
	"github.com/dkeye/Keystroke/internal/storage/journal"
)

type memJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (j *memJournal) Record(e journal.Entry) {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
}

func (j *memJournal) Close() error { return nil }

func (j *memJournal) Kinds() []journal.Kind {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]journal.Kind, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Kind)
	}
	return out
}

type harness struct {
	t       *testing.T
	clock   *coretest.ManualClock
	orch    *orch.Orchestrator
	journal *memJournal
	conns   map[string]*coretest.RecorderConn
}

func newHarness(t *testing.T, tune ...func(*orch.Settings)) *harness {
	t.Helper()
	clock := coretest.NewManualClock(time.Unix(1_700_000_000, 0))
	settings := orch.DefaultSettings()
	settings.Moderators = []domain.UserID{"mod"}
	settings.ModCode = "letmein"
	for _, f := range tune {
		f(&settings)
	}
	j := &memJournal{}
	o := orch.New(orch.Options{
		Registry:  app.NewRegistry(),
		Rooms:     core.NewRoomManager(nil, 5),
		Policy:    app.SimplePolicy{},
		Filter:    moderation.NewFilter(moderation.Config{Words: []string{"gadzooks", "dagnabit"}}),
		Bans:      ban.NewStore(clock),
		Journal:   j,
		Clock:     clock,
		Scheduler: clock,
		Settings:  settings,
	})
	return &harness{t: t, clock: clock, orch: o, journal: j, conns: make(map[string]*coretest.RecorderConn)}
}

// connect binds a connection whose session id equals the user id it will use.
func (h *harness) connect(uid string) *coretest.RecorderConn {
	return h.connectWithProof(uid, "")
}

func (h *harness) connectWithProof(uid string, proof domain.UserID) *coretest.RecorderConn {
	conn := coretest.NewRecorderConn()
	h.conns[uid] = conn
	h.orch.Connect(core.SessionID(uid), conn, nil, proof)
	return conn
}

func profile(uid string) domain.Profile {
	return domain.Profile{DisplayName: "user " + uid, Location: "Earth"}
}

func (h *harness) create(uid, name string, visibility domain.Visibility) domain.RoomID {
	h.t.Helper()
	if _, ok := h.conns[uid]; !ok {
		h.connect(uid)
	}
	dto, err := h.orch.CreateRoom(core.SessionID(uid), orch.CreateRoomRequest{
		UserID:     domain.UserID(uid),
		Profile:    profile(uid),
		RoomName:   name,
		Visibility: visibility,
	})
	require.NoError(h.t, err)
	return dto.ID
}

func (h *harness) join(uid string, roomID domain.RoomID) error {
	if _, ok := h.conns[uid]; !ok {
		h.connect(uid)
	}
	_, err := h.orch.JoinRoom(core.SessionID(uid), orch.JoinRoomRequest{
		RoomID:  roomID,
		UserID:  domain.UserID(uid),
		Profile: profile(uid),
	})
	return err
}

func (h *harness) mustJoin(roomID domain.RoomID, uids ...string) {
	h.t.Helper()
	for _, uid := range uids {
		require.NoError(h.t, h.join(uid, roomID))
	}
}

func (h *harness) vote(voter string, roomID domain.RoomID, target string) error {
	return h.orch.ThumbsDown(core.SessionID(voter), roomID, domain.UserID(target))
}

func (h *harness) members(roomID domain.RoomID) []domain.UserID {
	h.t.Helper()
	dto, ok := h.orch.Room(roomID)
	if !ok {
		return nil
	}
	out := make([]domain.UserID, 0, len(dto.Members))
	for _, m := range dto.Members {
		out = append(out, m.UserID)
	}
	return out
}

func (h *harness) resetAll() {
	for _, c := range h.conns {
		c.Reset()
	}
}
