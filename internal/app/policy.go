package app

import (
	"errors"

	"github.com/dkeye/Keystroke/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a connection that refused an outbound frame.
type Policy interface {
	OnBackPressure(sid core.SessionID, err error) BackpressureAction
}

// SimplePolicy kicks slow consumers and ignores connections already closing.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(_ core.SessionID, err error) BackpressureAction {
	switch {
	case errors.Is(err, core.ErrBackpressure):
		return KickMember
	case errors.Is(err, core.ErrConnClosed):
		return NoAction
	default:
		return DropFrame
	}
}
