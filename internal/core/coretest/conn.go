package coretest

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/Keystroke/internal/core"
)

// RecorderConn is a core.SignalConnection that keeps every frame it accepts.
type RecorderConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	full   bool
}

// Event is a decoded outbound frame.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func NewRecorderConn() *RecorderConn {
	return &RecorderConn{}
}

func (c *RecorderConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *RecorderConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *RecorderConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SetFull makes every later TrySend fail with core.ErrBackpressure.
func (c *RecorderConn) SetFull(full bool) {
	c.mu.Lock()
	c.full = full
	c.mu.Unlock()
}

func (c *RecorderConn) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, 0, len(c.frames))
	for _, f := range c.frames {
		var ev Event
		if err := json.Unmarshal(f, &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (c *RecorderConn) Types() []string {
	events := c.Events()
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

// Last decodes the payload of the most recent event of type evType into dst
// and reports whether one was found.
func (c *RecorderConn) Last(evType string, dst any) bool {
	events := c.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type != evType {
			continue
		}
		if dst != nil {
			if err := json.Unmarshal(events[i].Payload, dst); err != nil {
				return false
			}
		}
		return true
	}
	return false
}

func (c *RecorderConn) Count(evType string) int {
	n := 0
	for _, t := range c.Types() {
		if t == evType {
			n++
		}
	}
	return n
}

func (c *RecorderConn) Reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}
