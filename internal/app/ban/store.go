// Package ban keeps temporary user bans in memory.
package ban

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
)

// Store maps a user id to its ban expiration. Expired records are dropped
// lazily when looked up.
type Store struct {
	mu    sync.Mutex
	clock core.Clock
	bans  map[domain.UserID]time.Time
}

func NewStore(clock core.Clock) *Store {
	if clock == nil {
		clock = core.SystemClock()
	}
	return &Store{
		clock: clock,
		bans:  make(map[domain.UserID]time.Time),
	}
}

// Ban sets or overwrites uid's expiration to now+d and returns it.
func (s *Store) Ban(uid domain.UserID, d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt := s.clock.Now().Add(d)
	s.bans[uid] = expiresAt
	log.Info().Str("module", "app.ban").
		Str("user", string(uid)).
		Time("expires_at", expiresAt).
		Msg("user banned")
	return expiresAt
}

func (s *Store) IsBanned(uid domain.UserID) bool {
	_, ok := s.ExpirationOf(uid)
	return ok
}

// ExpirationOf returns the expiration of an active ban.
func (s *Store) ExpirationOf(uid domain.UserID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.bans[uid]
	if !ok {
		return time.Time{}, false
	}
	if !s.clock.Now().Before(expiresAt) {
		delete(s.bans, uid)
		return time.Time{}, false
	}
	return expiresAt, true
}

// Check returns a *domain.BanError while uid is banned.
func (s *Store) Check(uid domain.UserID) error {
	if expiresAt, ok := s.ExpirationOf(uid); ok {
		return &domain.BanError{ExpiresAt: expiresAt}
	}
	return nil
}
