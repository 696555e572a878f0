// Package journal appends moderation events to durable storage. Nothing in
// the room coordinator reads it back; in-memory state stays authoritative.
package journal

import (
	"time"

	"github.com/dkeye/Keystroke/internal/domain"
)

type Kind string

const (
	KindRoomCreated      Kind = "room_created"
	KindRoomDeleted      Kind = "room_deleted"
	KindBan              Kind = "ban"
	KindEjection         Kind = "ejection"
	KindModeratorRemoval Kind = "moderator_removal"
)

type Entry struct {
	At      time.Time
	Kind    Kind
	RoomID  domain.RoomID
	UserID  domain.UserID
	ActorID domain.UserID
	Detail  string
}

// Journal must never block the caller.
type Journal interface {
	Record(Entry)
	Close() error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(Entry) {}
func (Nop) Close() error { return nil }
