package orch_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Keystroke/internal/app/orch"
	"github.com/dkeye/Keystroke/internal/domain"
	"github.com/dkeye/Keystroke/internal/storage/journal"
)

func TestTyping(t *testing.T) {
	t.Run("relays to everyone but the typist", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.mustJoin(id, "b")

		// When
		err := h.orch.Typing("a", id, "a", "gadz", "#ff0000")

		// Then
		require.NoError(t, err)
		var ev orch.TextEvent
		require.True(t, h.conns["b"].Last(orch.EvTyping, &ev))
		assert.Equal(t, orch.TextEvent{RoomID: id, UserID: "a", Text: "gadz", Color: "#ff0000"}, ev)
		assert.False(t, h.conns["a"].Last(orch.EvTyping, nil))
	})

	t.Run("partial text is never moderated", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.mustJoin(id, "b")

		// When
		err := h.orch.Typing("a", id, "a", "gadzooks", "")

		// Then
		require.NoError(t, err)
		assert.False(t, h.orch.IsBanned("a"))
		assert.True(t, h.conns["b"].Last(orch.EvTyping, nil))
	})

	t.Run("stale sender is ignored", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.connect("z")

		// When
		err := h.orch.Typing("z", id, "z", "hi", "")

		// Then
		require.NoError(t, err)
		assert.False(t, h.conns["a"].Last(orch.EvTyping, nil))
	})
}

func TestMessage(t *testing.T) {
	t.Run("clean text reaches the whole room", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.mustJoin(id, "b")

		// When
		err := h.orch.Message("a", id, "a", "h3ll0 w0rld", "")

		// Then
		require.NoError(t, err)
		for _, uid := range []string{"a", "b"} {
			var ev orch.TextEvent
			require.True(t, h.conns[uid].Last(orch.EvMessage, &ev), uid)
			assert.Equal(t, "h3ll0 w0rld", ev.Text)
		}
	})

	t.Run("offensive text bans and disconnects the sender", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.mustJoin(id, "b")
		now := h.clock.Now()

		// When
		err := h.orch.Message("b", id, "b", "you g@dz00ks", "")

		// Then
		assert.ErrorIs(t, err, domain.ErrOffensiveContent)
		sender := h.conns["b"]
		var banned orch.UserBannedEvent
		require.True(t, sender.Last(orch.EvUserBanned, &banned))
		assert.Equal(t, now.Add(30*time.Second).UnixMilli(), banned.ExpiresAt)
		assert.True(t, sender.Closed())
		assert.Equal(t, []domain.UserID{"a"}, h.members(id))
		assert.False(t, h.conns["a"].Last(orch.EvMessage, nil))
		assert.True(t, h.conns["a"].Last(orch.EvMemberLeft, nil))
		assert.Equal(t, []journal.Kind{journal.KindRoomCreated, journal.KindBan}, h.journal.Kinds())

		// When
		h.connect("b2")
		err = h.orch.Identify("b2", "b")

		// Then
		var banErr *domain.BanError
		require.True(t, errors.As(err, &banErr))
		assert.Equal(t, now.Add(30*time.Second), banErr.ExpiresAt)

		// When
		h.clock.Advance(30 * time.Second)

		// Then
		assert.NoError(t, h.orch.Identify("b2", "b"))
	})

	t.Run("rejects blank and oversized text", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)

		// Then
		assert.ErrorIs(t, h.orch.Message("a", id, "a", "   ", ""), domain.ErrInvalidInput)
		assert.ErrorIs(t, h.orch.Message("a", id, "a", strings.Repeat("x", 501), ""), domain.ErrInvalidInput)
	})

	t.Run("sender must be a member on this connection", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.connect("z")

		// Then
		assert.ErrorIs(t, h.orch.Message("z", id, "a", "hi", ""), domain.ErrNotMember)
		assert.ErrorIs(t, h.orch.Message("a", "000000", "a", "hi", ""), domain.ErrRoomNotFound)
	})

	t.Run("birthday is celebrated once per user and room", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.mustJoin(id, "b")

		// When
		require.NoError(t, h.orch.Message("a", id, "a", "Guess what, TODAY IS MY BIRTHDAY", ""))
		require.NoError(t, h.orch.Message("a", id, "a", "it's my birthday!", ""))

		// Then
		assert.Equal(t, 1, h.conns["b"].Count(orch.EvBirthdayMessage))
		assert.Equal(t, 2, h.conns["b"].Count(orch.EvMessage))
		var ev orch.BirthdayEvent
		require.True(t, h.conns["b"].Last(orch.EvBirthdayMessage, &ev))
		assert.Equal(t, "user a", ev.DisplayName)
	})
}
