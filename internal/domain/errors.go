package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrOffensiveContent = errors.New("input contains offensive words")
	ErrRoomFull         = errors.New("room is full")
	ErrRoomNotFound     = errors.New("room not found")
	ErrDuplicateMember  = errors.New("user already in room")
	ErrVotingDisabled   = errors.New("voting disabled")
	ErrBanned           = errors.New("user banned")
	ErrNotMember        = errors.New("not a room member")
	ErrForbidden        = errors.New("forbidden")
)

// BanError carries the ban expiration so clients can show a countdown.
type BanError struct {
	ExpiresAt time.Time
}

func (e *BanError) Error() string {
	return fmt.Sprintf("user banned until %s", e.ExpiresAt.UTC().Format(time.RFC3339))
}

func (e *BanError) Unwrap() error { return ErrBanned }

// VotingDisabledError is informational; Reason is shown to the voter as-is.
type VotingDisabledError struct {
	Reason string
}

func (e *VotingDisabledError) Error() string { return "voting disabled: " + e.Reason }

func (e *VotingDisabledError) Unwrap() error { return ErrVotingDisabled }
