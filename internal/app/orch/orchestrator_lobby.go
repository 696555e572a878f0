package orch

import (
	"crypto/subtle"
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
)

// Identify marks the connection's user active and answers with a random
// sample of public rooms. A banned user gets the ban back instead.
func (o *Orchestrator) Identify(sid core.SessionID, uid domain.UserID) error {
	o.lock()
	defer o.unlock()

	if err := uid.Validate(); err != nil {
		return err
	}
	if err := o.bans.Check(uid); err != nil {
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("user", string(uid)).Msg("banned user identified")
		return err
	}
	if err := o.registry.Identify(sid, uid); err != nil {
		return err
	}
	o.publishCountsLocked()
	o.send(sid, EvExistingRooms, o.lobbySampleLocked())
	return nil
}

// UserGone handles a client announcing it is going away while the
// connection is still open.
func (o *Orchestrator) UserGone(sid core.SessionID, uid domain.UserID) {
	o.lock()
	defer o.unlock()
	if o.registry.Forget(sid, uid) {
		o.publishCountsLocked()
	}
}

func (o *Orchestrator) ListRooms(sid core.SessionID) {
	o.lock()
	defer o.unlock()
	o.send(sid, EvExistingRooms, o.lobbySampleLocked())
}

// SearchRoom answers with the room, or null when it is missing or secret.
func (o *Orchestrator) SearchRoom(sid core.SessionID, roomID domain.RoomID) {
	o.lock()
	defer o.unlock()
	var result *core.RoomDTO
	if room, ok := o.rooms.GetRoom(roomID); ok && room.Visibility != domain.VisibilitySecret {
		dto := room.DTO()
		result = &dto
	}
	o.send(sid, EvSearchResult, result)
}

func (o *Orchestrator) lobbySampleLocked() []core.RoomDTO {
	public := o.rooms.Public()
	rand.Shuffle(len(public), func(i, j int) { public[i], public[j] = public[j], public[i] })
	if n := o.settings.LobbySample; n > 0 && len(public) > n {
		public = public[:n]
	}
	out := make([]core.RoomDTO, 0, len(public))
	for _, r := range public {
		out = append(out, r.DTO())
	}
	return out
}

// PublicRooms lists public rooms ordered by id.
func (o *Orchestrator) PublicRooms() []core.RoomDTO {
	o.lock()
	defer o.unlock()
	public := o.rooms.Public()
	out := make([]core.RoomDTO, 0, len(public))
	for _, r := range public {
		out = append(out, r.DTO())
	}
	return out
}

// Room looks up a room that is not secret.
func (o *Orchestrator) Room(id domain.RoomID) (core.RoomDTO, bool) {
	o.lock()
	defer o.unlock()
	room, ok := o.rooms.GetRoom(id)
	if !ok || room.Visibility == domain.VisibilitySecret {
		return core.RoomDTO{}, false
	}
	return room.DTO(), true
}

// VerifyModCode succeeds only for an allow-listed user presenting the code.
func (o *Orchestrator) VerifyModCode(code string, uid domain.UserID) bool {
	if o.settings.ModCode == "" || code == "" {
		return false
	}
	if _, ok := o.moderators[uid]; !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(o.settings.ModCode)) == 1
}

func (o *Orchestrator) IsBanned(uid domain.UserID) bool {
	return o.bans.IsBanned(uid)
}

func (o *Orchestrator) OffensiveWords() []string {
	return o.filter.Words()
}
