package messaging

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

// GoRedisClient adapts a go-redis client to the RedisClient interface used
// by the bus and the consumer. The adapter does not own the client; whoever
// created it closes it.
type GoRedisClient struct {
	client *redis.Client
}

// NewGoRedisClient wraps an existing go-redis client.
func NewGoRedisClient(client *redis.Client) *GoRedisClient {
	return &GoRedisClient{client: client}
}

// Publish sends a message to the given channel.
func (c *GoRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.client.Publish(ctx, channel, message).Err()
}

// Subscribe opens a subscription on the given channels. The returned channel
// closes when ctx is cancelled or the subscription drops.
func (c *GoRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	pubsub := c.client.Subscribe(ctx, channels...)

	// Force the SUBSCRIBE round trip so a dead Redis fails here, not on the
	// first missed message.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan RedisMessage, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the owner of the underlying client closes it.
func (c *GoRedisClient) Close() error {
	return nil
}
