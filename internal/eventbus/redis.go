package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	logx "github.com/darkden-lab/tableside/internal/log"
)

const redisOpTimeout = 5 * time.Second

// RedisBus implements Bus on Redis pub/sub so every process behind a load
// balancer sees every event. One PubSub connection is shared by all local
// handlers; a Redis channel is subscribed while at least one local handler
// wants its topic.
type RedisBus struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger

	mu      sync.Mutex
	subs    *registry
	pubsub  *redis.PubSub
	started bool
	closed  bool
	done    chan struct{}
}

// NewRedisBus creates a RedisBus on client. Channel names are prefix+topic.
func NewRedisBus(client *redis.Client, prefix string) (*RedisBus, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisBus{
		client: client,
		prefix: prefix,
		logger: logx.WithComponent("eventbus.redis"),
		subs:   newRegistry(),
		pubsub: client.Subscribe(context.Background()),
		done:   make(chan struct{}),
	}, nil
}

func (b *RedisBus) channel(topic string) string {
	return b.prefix + topic
}

// Publish serializes the event to JSON and publishes it on the topic channel.
func (b *RedisBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	event.Topic = topic
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(topic), value).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

// Subscribe registers handler locally and subscribes the Redis channel when
// it is the first handler for topic.
func (b *RedisBus) Subscribe(topic string, handler Handler) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", ErrClosed
	}

	handle, first := b.subs.add(topic, handler)
	if !first {
		return handle, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := b.pubsub.Subscribe(ctx, b.channel(topic)); err != nil {
		_, _, _ = b.subs.remove(handle)
		return "", fmt.Errorf("subscribe %s: %w", topic, err)
	}
	if !b.started {
		b.started = true
		go b.receiveLoop(b.pubsub.Channel())
	}
	return handle, nil
}

// Unsubscribe releases handle and drops the Redis channel subscription when
// no local handler is left on its topic.
func (b *RedisBus) Unsubscribe(handle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	topic, last, err := b.subs.remove(handle)
	if err != nil {
		return err
	}
	if !last {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := b.pubsub.Unsubscribe(ctx, b.channel(topic)); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", topic, err)
	}
	return nil
}

// Close closes the shared PubSub connection and waits for the receive loop.
// The Redis client itself belongs to the caller.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	started := b.started
	b.mu.Unlock()

	err := b.pubsub.Close()
	if started {
		<-b.done
	}
	return err
}

func (b *RedisBus) receiveLoop(ch <-chan *redis.Message) {
	defer close(b.done)

	for msg := range ch {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			b.logger.Warn().Err(err).Str(logx.FieldTopic, msg.Channel).Msg("discarding undecodable bus message")
			continue
		}
		event.Topic = strings.TrimPrefix(msg.Channel, b.prefix)
		b.subs.deliver(event)
	}
}
