package core

// Frame is a raw encoded event.
type Frame []byte

// SignalConnection abstracts a live duplex channel to one participant.
// Owned by the adapter; the adapter must Close() it.
// TrySend must not block and must fail (not panic) after Close.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
