package core

import (
	"errors"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/dkeye/Keystroke/internal/domain"
)

const maxIDAttempts = 32

var ErrIDSpaceExhausted = errors.New("could not allocate a free room id")

// IDGenerator returns candidate room ids; RoomManager checks them for collisions.
type IDGenerator interface {
	New() string
}

type numericIDGenerator struct{}

// NewNumericIDGenerator yields six digit ids, short enough to read out loud.
func NewNumericIDGenerator() IDGenerator { return numericIDGenerator{} }

func (numericIDGenerator) New() string {
	return strconv.Itoa(100000 + rand.IntN(900000))
}

// RoomManager owns the authoritative set of live rooms. Like Room it is not
// safe for concurrent use.
type RoomManager struct {
	rooms    map[domain.RoomID]*Room
	ids      IDGenerator
	capacity int
}

// NewRoomManager clamps capacity into [1, domain.MaxRoomMembers].
func NewRoomManager(ids IDGenerator, capacity int) *RoomManager {
	if ids == nil {
		ids = NewNumericIDGenerator()
	}
	capacity = min(max(capacity, 1), domain.MaxRoomMembers)
	return &RoomManager{
		rooms:    make(map[domain.RoomID]*Room),
		ids:      ids,
		capacity: capacity,
	}
}

func (m *RoomManager) CreateRoom(name string, visibility domain.Visibility, layout domain.Layout) (*Room, error) {
	for range maxIDAttempts {
		id := domain.RoomID(m.ids.New())
		if _, taken := m.rooms[id]; taken {
			continue
		}
		room := NewRoom(id, name, visibility, layout, m.capacity)
		m.rooms[id] = room
		return room, nil
	}
	return nil, ErrIDSpaceExhausted
}

func (m *RoomManager) GetRoom(id domain.RoomID) (*Room, bool) {
	room, ok := m.rooms[id]
	return room, ok
}

func (m *RoomManager) StopRoom(id domain.RoomID) {
	if room, ok := m.rooms[id]; ok {
		room.CancelDeletion()
		delete(m.rooms, id)
	}
}

// List returns rooms ordered by id.
func (m *RoomManager) List() []*Room {
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *RoomManager) Public() []*Room {
	var out []*Room
	for _, r := range m.List() {
		if r.Visibility == domain.VisibilityPublic {
			out = append(out, r)
		}
	}
	return out
}

// RoomsOfSession returns every room holding a member bound to sid.
func (m *RoomManager) RoomsOfSession(sid SessionID) []*Room {
	var out []*Room
	for _, r := range m.List() {
		if _, ok := r.MemberBySession(sid); ok {
			out = append(out, r)
		}
	}
	return out
}

func (m *RoomManager) Len() int { return len(m.rooms) }

// TotalMembers sums membership across all rooms.
func (m *RoomManager) TotalMembers() int {
	n := 0
	for _, r := range m.rooms {
		n += r.MemberCount()
	}
	return n
}
