package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Keystroke/internal/core"
)

// RoomRateLimiter is a sliding-window limiter over inbound events, keyed by
// connection.
type RoomRateLimiter struct {
	mu       sync.Mutex
	clock    core.Clock
	history  map[core.SessionID][]time.Time
	limit    int
	interval time.Duration
}

func NewRoomRateLimiter(limit int, interval time.Duration, clock core.Clock) *RoomRateLimiter {
	if clock == nil {
		clock = core.SystemClock()
	}
	return &RoomRateLimiter{
		clock:    clock,
		history:  make(map[core.SessionID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *RoomRateLimiter) Allow(sid core.SessionID) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[sid]

	// drop attempts that fell out of the window
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[sid] = fresh
		return false
	}

	rl.history[sid] = append(fresh, now)
	return true
}

func (rl *RoomRateLimiter) Forget(sid core.SessionID) {
	rl.mu.Lock()
	delete(rl.history, sid)
	rl.mu.Unlock()
}
