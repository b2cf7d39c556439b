package bus

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the Redis connection parameters for the signal bus.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// RedisBus implements domain.SignalBus on Redis Pub/Sub so multiple engine
// processes can share one observer fan-out.
type RedisBus struct {
	rdb *redis.Client
}

// NewRedisBus connects to Redis and verifies the connection with a ping.
func NewRedisBus(ctx context.Context, cfg RedisConfig) (*RedisBus, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("bus: redis ping %s: %w", cfg.Addr, err)
	}
	return &RedisBus{rdb: rdb}, nil
}

// Close releases the underlying Redis connection.
func (b *RedisBus) Close() error {
	return b.rdb.Close()
}

// Publish sends a raw byte payload to a Redis Pub/Sub channel.
func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("bus: redis publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a Redis Pub/Sub subscription and returns a read-only
// channel of raw payloads. The subscription is closed when the context is
// cancelled; the returned channel is closed at that point as well.
func (b *RedisBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := b.rdb.Subscribe(ctx, channel)

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("bus: redis subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, subscriberBuffer)
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
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
