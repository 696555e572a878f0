package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrUnknownSession = errors.New("unknown session")

type sessionEntry struct {
	UserID   domain.UserID
	Signal   core.SignalConnection
	Cancel   context.CancelFunc
	ModProof domain.UserID
}

// Registry tracks live connections and the identity each one announced.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// BindSignal registers a fresh connection. modProof is the user id whose
// moderator code was verified on the HTTP session, if any.
func (r *Registry) BindSignal(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc, modProof domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Signal: conn, Cancel: cancel, ModProof: modProof}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

// CanIdentify reports whether Identify(sid, uid) would succeed, without binding.
func (r *Registry) CanIdentify(sid core.SessionID, uid domain.UserID) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := r.entryFor(sid, uid)
	return err
}

// Identify attaches uid to sid. A connection keeps one identity for its lifetime.
func (r *Registry) Identify(sid core.SessionID, uid domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.entryFor(sid, uid)
	if err != nil {
		return err
	}
	if e.UserID == "" {
		e.UserID = uid
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(uid)).Msg("identified")
	}
	return nil
}

func (r *Registry) entryFor(sid core.SessionID, uid domain.UserID) (*sessionEntry, error) {
	e, ok := r.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("identify %s: %w", sid, ErrUnknownSession)
	}
	if e.UserID != "" && e.UserID != uid {
		return nil, fmt.Errorf("session already identified as another user: %w", domain.ErrInvalidInput)
	}
	return e, nil
}

func (r *Registry) UserOf(sid core.SessionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok && e.UserID != "" {
		return e.UserID, true
	}
	return "", false
}

// ModProof returns the verified moderator id carried by sid.
func (r *Registry) ModProof(sid core.SessionID) domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.ModProof
	}
	return ""
}

func (r *Registry) GetSignal(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Signal, true
	}
	return nil, false
}

// Forget drops the identity of sid but keeps the connection bound.
func (r *Registry) Forget(sid core.SessionID, uid domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.UserID == "" || e.UserID != uid {
		return false
	}
	e.UserID = ""
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(uid)).Msg("forgot identity")
	return true
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

// ActiveUsers counts distinct identities across live connections.
func (r *Registry) ActiveUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[domain.UserID]struct{}, len(r.sessions))
	for _, e := range r.sessions {
		if e.UserID != "" {
			seen[e.UserID] = struct{}{}
		}
	}
	return len(seen)
}

type regSnap struct {
	SID    core.SessionID
	UserID domain.UserID
	Signal core.SignalConnection
}

func (r *Registry) Sessions() []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, regSnap{SID: sid, UserID: e.UserID, Signal: e.Signal})
	}
	return out
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
