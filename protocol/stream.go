package protocol

import "context"

// Stream is one established bidirectional message channel to a coordinator.
// Send is safe for concurrent callers; Receive must only be called from a
// single goroutine. Close is idempotent and releases the underlying
// connection.
type Stream interface {
	Send(ctx context.Context, msg *ClientMessage) error
	Receive(ctx context.Context) (*ServerMessage, error)
	Close() error
}

// Dialer establishes a fresh Stream per connection attempt. Implementations
// own the long-lived transport resources (connection pool, TLS config) that
// outlive individual streams.
type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}
