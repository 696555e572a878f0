package core

import "errors"

var (
	// ErrBackpressure means the connection's send buffer is full.
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is one encoded outbound event.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend never blocks; it fails with ErrBackpressure or ErrConnClosed.
	TrySend(Frame) error
	// Close flushes frames already queued and then shuts the transport.
	Close()
}
