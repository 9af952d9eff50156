package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"mlboard/internal/core/domain"
)

const (
	historyKey        = "mlboard:events:history"
	defaultHistoryCap = 100
)

// History keeps the most recent events in a capped Redis list, newest first.
type History struct {
	client *redis.Client
	cap    int64
}

func NewHistory(client *redis.Client, capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistoryCap
	}
	return &History{client: client, cap: int64(capacity)}
}

// Add stores an encoded event and trims the list to capacity.
func (h *History) Add(ctx context.Context, data []byte) error {
	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, 0, h.cap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add event to history: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 || int64(limit) > h.cap {
		limit = int(h.cap)
	}

	items, err := h.client.LRange(ctx, historyKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event history: %w", err)
	}

	events := make([]domain.Event, 0, len(items))
	for _, item := range items {
		var event domain.Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			continue // Skip corrupted entries
		}
		events = append(events, event)
	}
	return events, nil
}

// Clear drops the whole history.
func (h *History) Clear(ctx context.Context) error {
	return h.client.Del(ctx, historyKey).Err()
}
