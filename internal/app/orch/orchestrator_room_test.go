package orch_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Keystroke/internal/app/orch"
	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
	"github.com/dkeye/Keystroke/internal/storage/journal"
)

func TestCreateRoom(t *testing.T) {
	t.Run("announces a public room to everyone else", func(t *testing.T) {
		// Given
		h := newHarness(t)
		watcher := h.connect("w")
		creator := h.connect("a")

		// When
		id := h.create("a", "Lounge", domain.VisibilityPublic)

		// Then
		assert.True(t, watcher.Last(orch.EvRoomCreated, nil))
		assert.True(t, watcher.Last(orch.EvRoomUpdated, nil))
		assert.False(t, creator.Last(orch.EvRoomCreated, nil))

		var joined orch.RoomJoinedEvent
		require.True(t, creator.Last(orch.EvRoomJoined, &joined))
		assert.Equal(t, id, joined.RoomID)
		assert.Equal(t, "Lounge", joined.RoomName)
		assert.Equal(t, domain.UserID("a"), joined.UserID)

		var list orch.MemberListEvent
		require.True(t, creator.Last(orch.EvMemberList, &list))
		require.Len(t, list.Members, 1)
		assert.Equal(t, domain.UserID("a"), list.Members[0].UserID)
		assert.Equal(t, []journal.Kind{journal.KindRoomCreated}, h.journal.Kinds())
	})

	t.Run("keeps a secret room quiet", func(t *testing.T) {
		// Given
		h := newHarness(t)
		watcher := h.connect("w")

		// When
		id := h.create("a", "Hideout", domain.VisibilitySecret)

		// Then
		assert.False(t, watcher.Last(orch.EvRoomCreated, nil))
		assert.False(t, watcher.Last(orch.EvRoomUpdated, nil))
		assert.True(t, h.conns["a"].Last(orch.EvRoomUpdated, nil))
		_, visible := h.orch.Room(id)
		assert.False(t, visible)
		assert.Empty(t, h.orch.PublicRooms())
	})

	tests := []struct {
		name string
		req  orch.CreateRoomRequest
		want error
	}{
		{
			name: "empty room name",
			req:  orch.CreateRoomRequest{UserID: "a", Profile: profile("a"), Visibility: domain.VisibilityPublic},
			want: domain.ErrInvalidInput,
		},
		{
			name: "room name over 20 code points",
			req:  orch.CreateRoomRequest{UserID: "a", Profile: profile("a"), RoomName: strings.Repeat("é", 21), Visibility: domain.VisibilityPublic},
			want: domain.ErrInvalidInput,
		},
		{
			name: "unknown visibility",
			req:  orch.CreateRoomRequest{UserID: "a", Profile: profile("a"), RoomName: "Lounge", Visibility: "hidden"},
			want: domain.ErrInvalidInput,
		},
		{
			name: "missing location",
			req:  orch.CreateRoomRequest{UserID: "a", Profile: domain.Profile{DisplayName: "a"}, RoomName: "Lounge", Visibility: domain.VisibilityPublic},
			want: domain.ErrInvalidInput,
		},
		{
			name: "offensive room name",
			req:  orch.CreateRoomRequest{UserID: "a", Profile: profile("a"), RoomName: "g4dz00ks club", Visibility: domain.VisibilityPublic},
			want: domain.ErrOffensiveContent,
		},
		{
			name: "offensive display name",
			req:  orch.CreateRoomRequest{UserID: "a", Profile: domain.Profile{DisplayName: "dagnabit", Location: "x"}, RoomName: "Lounge", Visibility: domain.VisibilityPublic},
			want: domain.ErrOffensiveContent,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Given
			h := newHarness(t)
			h.connect("a")

			// When
			_, err := h.orch.CreateRoom("a", tc.req)

			// Then
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 0, h.orch.Counts().RoomsCount)
		})
	}
}

func TestJoinRoom(t *testing.T) {
	t.Run("notifies the room and snapshots state for the joiner", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.mustJoin(id, "b", "c")
		require.NoError(t, h.vote("b", id, "c"))

		// When
		require.NoError(t, h.join("d", id))

		// Then
		var joined orch.MemberJoinedEvent
		require.True(t, h.conns["a"].Last(orch.EvMemberJoined, &joined))
		assert.Equal(t, domain.UserID("d"), joined.UserID)
		assert.False(t, h.conns["d"].Last(orch.EvMemberJoined, nil))

		var list orch.MemberListEvent
		require.True(t, h.conns["d"].Last(orch.EvMemberList, &list))
		assert.Len(t, list.Members, 4)
		assert.Equal(t, map[domain.UserID]int{"c": 1}, list.Votes)
		assert.Equal(t, []domain.UserID{"a", "b", "c", "d"}, h.members(id))
	})

	t.Run("rejects a sixth member", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.mustJoin(id, "b", "c", "d", "e")

		// When
		err := h.join("f", id)

		// Then
		assert.ErrorIs(t, err, domain.ErrRoomFull)
		assert.Len(t, h.members(id), 5)
	})

	t.Run("rejects the same user twice", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)

		// When
		err := h.join("a", id)

		// Then
		assert.ErrorIs(t, err, domain.ErrDuplicateMember)
		assert.Len(t, h.members(id), 1)
	})

	t.Run("unknown room", func(t *testing.T) {
		h := newHarness(t)
		assert.ErrorIs(t, h.join("a", "999999"), domain.ErrRoomNotFound)
	})

	t.Run("payload naming another user", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.connect("b")
		require.NoError(t, h.orch.Identify("b", "b"))

		// When
		_, err := h.orch.JoinRoom("b", orch.JoinRoomRequest{RoomID: id, UserID: "c", Profile: profile("c")})

		// Then
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, []domain.UserID{"a"}, h.members(id))
	})

	t.Run("secret room joinable by exact id", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Hideout", domain.VisibilitySecret)

		// When
		err := h.join("b", id)

		// Then
		require.NoError(t, err)
		assert.True(t, h.conns["a"].Last(orch.EvMemberJoined, nil))
	})
}

func TestLeaveRoom(t *testing.T) {
	t.Run("clears votes by and against the leaver", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.mustJoin(id, "b", "c", "d", "e")
		require.NoError(t, h.vote("b", id, "a"))
		require.NoError(t, h.vote("a", id, "c"))
		h.resetAll()

		// When
		require.NoError(t, h.orch.LeaveRoom("a", id, "a"))

		// Then
		var left orch.MemberLeftEvent
		require.True(t, h.conns["b"].Last(orch.EvMemberLeft, &left))
		assert.Equal(t, domain.UserID("a"), left.UserID)

		var tally orch.ThumbsDownCountEvent
		require.True(t, h.conns["b"].Last(orch.EvThumbsDownCount, &tally))
		assert.Equal(t, domain.UserID("c"), tally.UserID)
		assert.Equal(t, 0, tally.Count)
		assert.True(t, h.conns["a"].Last(orch.EvRoomLeft, nil))

		require.NoError(t, h.join("f", id))
		var list orch.MemberListEvent
		require.True(t, h.conns["f"].Last(orch.EvMemberList, &list))
		assert.Empty(t, list.Votes)
	})

	t.Run("not a member", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		h.connect("b")

		// Then
		assert.ErrorIs(t, h.orch.LeaveRoom("b", id, "a"), domain.ErrNotMember)
		assert.ErrorIs(t, h.orch.LeaveRoom("b", id, "b"), domain.ErrNotMember)
	})
}

func TestEmptyRoomDeletion(t *testing.T) {
	t.Run("deleted after the grace period", func(t *testing.T) {
		// Given
		h := newHarness(t)
		watcher := h.connect("w")
		id := h.create("a", "Lounge", domain.VisibilityPublic)

		// When
		require.NoError(t, h.orch.LeaveRoom("a", id, "a"))
		h.clock.Advance(10*time.Second - time.Millisecond)

		// Then
		_, ok := h.orch.Room(id)
		assert.True(t, ok)

		// When
		h.clock.Advance(time.Millisecond)

		// Then
		_, ok = h.orch.Room(id)
		assert.False(t, ok)
		var removed orch.RoomRemovedEvent
		require.True(t, watcher.Last(orch.EvRoomRemoved, &removed))
		assert.Equal(t, id, removed.RoomID)

		h.orch.ListRooms("w")
		var rooms []core.RoomDTO
		require.True(t, watcher.Last(orch.EvExistingRooms, &rooms))
		assert.Empty(t, rooms)
		assert.Contains(t, h.journal.Kinds(), journal.KindRoomDeleted)
	})

	t.Run("a rejoin during the grace period keeps the room", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		require.NoError(t, h.orch.LeaveRoom("a", id, "a"))
		h.clock.Advance(5 * time.Second)

		// When
		require.NoError(t, h.join("b", id))
		h.clock.Advance(time.Minute)

		// Then
		assert.Equal(t, []domain.UserID{"b"}, h.members(id))
		assert.Equal(t, 0, h.clock.Pending())
	})

	t.Run("leaving again restarts the full grace period", func(t *testing.T) {
		// Given
		h := newHarness(t)
		id := h.create("a", "Lounge", domain.VisibilityPublic)
		require.NoError(t, h.orch.LeaveRoom("a", id, "a"))
		h.clock.Advance(8 * time.Second)
		require.NoError(t, h.join("a", id))

		// When
		require.NoError(t, h.orch.LeaveRoom("a", id, "a"))
		h.clock.Advance(8 * time.Second)

		// Then
		_, ok := h.orch.Room(id)
		assert.True(t, ok)
		h.clock.Advance(2 * time.Second)
		_, ok = h.orch.Room(id)
		assert.False(t, ok)
	})
}

func TestDisconnect(t *testing.T) {
	// Given
	h := newHarness(t)
	first := h.create("a", "Lounge", domain.VisibilityPublic)
	second := h.create("b", "Den", domain.VisibilityPrivate)
	require.NoError(t, h.join("a", second))

	// When
	h.orch.Disconnect("a")

	// Then
	assert.Empty(t, h.members(first))
	assert.Equal(t, []domain.UserID{"b"}, h.members(second))
	assert.True(t, h.conns["b"].Last(orch.EvMemberLeft, nil))
	assert.Equal(t, orch.Counts{RoomsCount: 1, UsersCount: 1, OnlineCount: 1}, h.orch.Counts())
	assert.False(t, h.conns["a"].Closed())
}

func TestBackpressureKicksSlowConnection(t *testing.T) {
	// Given
	h := newHarness(t)
	id := h.create("a", "Lounge", domain.VisibilityPublic)
	h.mustJoin(id, "b")
	h.conns["b"].SetFull(true)

	// When
	err := h.orch.Message("a", id, "a", "hello there", "")

	// Then
	require.NoError(t, err)
	assert.True(t, h.conns["b"].Closed())
	assert.Equal(t, []domain.UserID{"a"}, h.members(id))
	assert.True(t, h.conns["a"].Last(orch.EvMemberLeft, nil))
}
