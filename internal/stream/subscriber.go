package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status marks connection transitions interleaved with events so a consumer
// sees drops and recoveries in delivery order.
type Status int

const (
	StatusEvent Status = iota
	StatusDropped
	StatusReconnected
)

// Notice is one element of a subscription: either an event (StatusEvent) or a
// connection transition with Event == nil.
type Notice struct {
	Status Status
	Event  *Event
}

// Subscriber yields a user's event stream. Implemented by Redis pub/sub in
// production and by fakes in tests.
type Subscriber interface {
	// Subscribe opens the stream for one user. The returned channel is
	// closed when ctx is cancelled; cancellation is the only way to release
	// the subscription.
	Subscribe(ctx context.Context, userID uint) (<-chan Notice, error)
}

// RedisSubscriber consumes per-user channels from Redis pub/sub. On a
// connection error it reports StatusDropped, resubscribes with backoff, and
// reports StatusReconnected, letting the consumer recompute anything missed
// during the gap.
type RedisSubscriber struct {
	client *redis.Client

	retryDelay time.Duration
}

func NewRedisSubscriber(client *redis.Client) *RedisSubscriber {
	return &RedisSubscriber{client: client, retryDelay: 2 * time.Second}
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, userID uint) (<-chan Notice, error) {
	pubsub := s.client.Subscribe(ctx, userChannel(userID))
	// Force the subscribe round trip so a dead broker fails activation
	// instead of surfacing later as a silent drop.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	notices := make(chan Notice, 64)
	go s.readLoop(ctx, userID, pubsub, notices)
	return notices, nil
}

func (s *RedisSubscriber) readLoop(ctx context.Context, userID uint, pubsub *redis.PubSub, notices chan<- Notice) {
	defer close(notices)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("stream: user %d subscription dropped: %v", userID, err)
			s.send(ctx, notices, Notice{Status: StatusDropped})
			if !s.reestablish(ctx, userID, &pubsub) {
				return
			}
			s.send(ctx, notices, Notice{Status: StatusReconnected})
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("stream: user %d discarding malformed event: %v", userID, err)
			continue
		}
		s.send(ctx, notices, Notice{Status: StatusEvent, Event: &ev})
	}
}

// reestablish replaces a dead pubsub with a fresh subscription, retrying
// until it succeeds or ctx is cancelled.
func (s *RedisSubscriber) reestablish(ctx context.Context, userID uint, pubsub **redis.PubSub) bool {
	_ = (*pubsub).Close()
	for {
		next := s.client.Subscribe(ctx, userChannel(userID))
		if _, err := next.Receive(ctx); err == nil {
			*pubsub = next
			return true
		} else if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			_ = next.Close()
			return false
		}
		_ = next.Close()

		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.retryDelay):
		}
	}
}

func (s *RedisSubscriber) send(ctx context.Context, notices chan<- Notice, n Notice) {
	select {
	case notices <- n:
	case <-ctx.Done():
	}
}
