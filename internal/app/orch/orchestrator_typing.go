package orch

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
	"github.com/dkeye/Keystroke/internal/storage/journal"
)

var birthdayPhrases = []string{
	"today is my birthday", "it's my birthday", "it is my birthday",
	"today's my birthday", "my birthday is today", "i'm celebrating my birthday",
	"im celebrating my birthday", "today is my bday", "its my bday",
	"it's my bday", "my bday is today", "celebrating my bday",
	"my birthday party is today", "having my birthday party", "born on this day",
}

func isBirthday(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range birthdayPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Typing forwards in-progress text to the other members. Partial text is not
// moderated, and a stale event from a non-member is dropped.
func (o *Orchestrator) Typing(sid core.SessionID, roomID domain.RoomID, uid domain.UserID, text, color string) error {
	o.lock()
	defer o.unlock()

	if err := o.bans.Check(uid); err != nil {
		return err
	}
	if utf8.RuneCountInString(text) > o.settings.MaxTextLength {
		return fmt.Errorf("typing text too long: %w", domain.ErrInvalidInput)
	}
	room, ok := o.rooms.GetRoom(roomID)
	if !ok {
		return nil
	}
	if m, ok := room.Member(uid); !ok || m.SessionID != sid {
		return nil
	}
	log.Debug().Str("module", "app.orch").Str("room", string(roomID)).Str("user", string(uid)).Msg("typing")
	o.sendRoom(room, EvTyping, TextEvent{RoomID: roomID, UserID: uid, Text: text, Color: color}, sid)
	return nil
}

// Message commits text. Offensive text bans the sender and ends the
// connection; clean text goes to the whole room, sender included.
func (o *Orchestrator) Message(sid core.SessionID, roomID domain.RoomID, uid domain.UserID, text, color string) error {
	o.lock()
	defer o.unlock()

	if err := o.bans.Check(uid); err != nil {
		return err
	}
	room, ok := o.rooms.GetRoom(roomID)
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, domain.ErrRoomNotFound)
	}
	m, ok := room.Member(uid)
	if !ok || m.SessionID != sid {
		return fmt.Errorf("message to %s: %w", roomID, domain.ErrNotMember)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty message: %w", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > o.settings.MaxTextLength {
		return fmt.Errorf("message too long: %w", domain.ErrInvalidInput)
	}

	if o.filter.IsOffensive(text) {
		expiresAt := o.bans.Ban(uid, o.settings.ChatBan)
		log.Warn().Str("module", "app.orch").
			Str("room", string(roomID)).
			Str("user", string(uid)).
			Msg("offensive message, banning sender")
		o.record(journal.Entry{Kind: journal.KindBan, RoomID: roomID, UserID: uid, Detail: "chat violation"})
		o.send(sid, EvUserBanned, UserBannedEvent{ExpiresAt: expiresAt.UnixMilli()})
		o.disconnectLocked(sid, true)
		return fmt.Errorf("message from %s: %w", uid, domain.ErrOffensiveContent)
	}

	o.sendRoom(room, EvMessage, TextEvent{RoomID: roomID, UserID: uid, Text: text, Color: color})
	if isBirthday(text) && room.AcknowledgeBirthday(uid) {
		o.sendRoom(room, EvBirthdayMessage, BirthdayEvent{
			RoomID:      roomID,
			UserID:      uid,
			DisplayName: m.Profile.DisplayName,
		})
	}
	return nil
}
