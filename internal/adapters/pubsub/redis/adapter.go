package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"mlboard/internal/core/domain"
	"mlboard/internal/core/logger"
)

const EventChannel = "mlboard:events"

// Adapter carries dashboard events between gateway replicas over Redis Pub/Sub.
type Adapter struct {
	client  *redis.Client
	history *History
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewAdapter wraps client. Published events are also appended to history when
// it is non-nil.
func NewAdapter(client *redis.Client, history *History) *Adapter {
	return &Adapter{client: client, history: history}
}

func (r *Adapter) Publish(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, EventChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if r.history != nil {
		if err := r.history.Add(ctx, data); err != nil {
			logger.Warn("Failed to record event history", "type", event.Type, "error", err)
		}
	}
	return nil
}

// Subscribe returns a channel of events that is closed once ctx is done.
// The subscription is confirmed before Subscribe returns.
func (r *Adapter) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	pubsub := r.client.Subscribe(ctx, EventChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", EventChannel, err)
	}

	ch := make(chan domain.Event)
	msgs := pubsub.Channel()

	go func() {
		<-ctx.Done()
		pubsub.Close()
	}()

	go func() {
		defer close(ch)
		for msg := range msgs {
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn("Dropping malformed event", "error", err)
				continue
			}
			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
