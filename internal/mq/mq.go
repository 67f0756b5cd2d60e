package mq

import "context"

// Publisher sends messages to a named channel on a broker. This server only
// emits events; consumers live elsewhere.
type Publisher interface {
	// Publish delivers data to the named channel and returns the broker's
	// message ID.
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}
