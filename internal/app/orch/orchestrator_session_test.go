package orch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Keystroke/internal/app/orch"
	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/core/coretest"
	"github.com/dkeye/Keystroke/internal/domain"
)

func TestDisconnect_PumpCancellation(t *testing.T) {
	t.Run("Given an offensive message When the sender is kicked Then its pumps are cancelled after the close", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		conn := coretest.NewRecorderConn()
		closedFirst := false
		cancelled := false
		h.orch.Connect("b", conn, func() {
			cancelled = true
			closedFirst = conn.Closed()
		}, "")
		h.conns["b"] = conn
		h.mustJoin(id, "b")

		// When
		err := h.orch.Message("b", id, "b", "gadzooks", "")

		// Then
		assert.ErrorIs(t, err, domain.ErrOffensiveContent)
		assert.True(t, cancelled)
		assert.True(t, closedFirst)
	})

	t.Run("Given a full send buffer When a broadcast is refused Then the slow session is cancelled", func(t *testing.T) {
		// Given
		h := newHarness(t)
		slow := coretest.NewRecorderConn()
		cancelled := false
		h.orch.Connect("slow", slow, func() { cancelled = true }, "")
		slow.SetFull(true)

		// When
		h.create("a", "Lounge", domain.VisibilityPublic)

		// Then
		assert.True(t, cancelled)
		assert.True(t, slow.Closed())
	})

	t.Run("Given a transport that went away When disconnecting Then the pump owner keeps its context", func(t *testing.T) {
		// Given
		h := newHarness(t)
		cancelled := false
		h.orch.Connect("gone", coretest.NewRecorderConn(), func() { cancelled = true }, "")

		// When
		h.orch.Disconnect("gone")

		// Then
		assert.False(t, cancelled)
	})
}

func TestJoinRoom_IdentityBoundOnlyOnSuccess(t *testing.T) {
	t.Run("Given a full room When a fresh session fails to join Then it stays unidentified", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.mustJoin(id, "b", "c", "d", "e")
		h.connect("f")

		// When
		err := h.join("f", id)

		// Then
		require.ErrorIs(t, err, domain.ErrRoomFull)
		assert.NoError(t, h.orch.Identify("f", "someone-else"))
	})

	t.Run("Given a duplicate user When another session joins as them Then that session stays unidentified", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.connect("a-again")

		// When
		_, err := h.orch.JoinRoom(core.SessionID("a-again"), orch.JoinRoomRequest{RoomID: id, UserID: "a", Profile: profile("a")})

		// Then
		require.ErrorIs(t, err, domain.ErrDuplicateMember)
		assert.NoError(t, h.orch.Identify("a-again", "z"))
	})

	t.Run("Given a successful join When the session later names another user Then it is refused", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.mustJoin(id, "b")

		// When
		err := h.orch.Identify("b", "z")

		// Then
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
