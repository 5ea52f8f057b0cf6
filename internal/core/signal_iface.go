package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is a single encoded outbound event.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: it enqueues or fails with ErrBackpressure/ErrConnClosed.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
