package messaging

import "context"

// Broker is the pub/sub fan-out used for live admin notification feeds.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
