package adapter

import (
	"context"
)

// MessageChannel is an ordered, reliable, message-framed bidirectional channel.
// ReadMessage returns io.EOF after the peer closed cleanly. Read and write may be
// used from different goroutines, but each direction from one goroutine only.
// WriteMessage must not retain message after it returns.
type MessageChannel interface {
	ReadMessage() ([]byte, error)
	WriteMessage(message []byte) error
	Close() error
}

type Tunnel interface {
	NewConnection(ctx context.Context, channel MessageChannel, metadata InboundContext) error
}
