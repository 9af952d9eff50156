package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mlboard/internal/core/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestAdapter_PublishSubscribe(t *testing.T) {
	_, client := newTestClient(t)
	adapter := NewAdapter(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := adapter.Subscribe(ctx)
	require.NoError(t, err)

	sent := domain.Event{
		ID:      "e-1",
		Type:    domain.EventDagStopped,
		Payload: map[string]any{"id": float64(3)},
		Time:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, adapter.Publish(ctx, sent))

	select {
	case got := <-events:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Type, got.Type)
		assert.Equal(t, sent.Payload, got.Payload)
		assert.True(t, sent.Time.Equal(got.Time))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestAdapter_SubscriptionClosesWithContext(t *testing.T) {
	_, client := newTestClient(t)
	adapter := NewAdapter(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := adapter.Subscribe(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestAdapter_SkipsMalformedPayloads(t *testing.T) {
	mr, client := newTestClient(t)
	adapter := NewAdapter(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := adapter.Subscribe(ctx)
	require.NoError(t, err)

	mr.Publish(EventChannel, "not json")
	require.NoError(t, adapter.Publish(ctx, domain.Event{ID: "ok", Type: domain.EventReportToggled}))

	select {
	case got := <-events:
		assert.Equal(t, "ok", got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHistory_CappedNewestFirst(t *testing.T) {
	_, client := newTestClient(t)
	history := NewHistory(client, 3)
	adapter := NewAdapter(client, history)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, adapter.Publish(ctx, domain.Event{ID: id, Type: domain.EventDagStopped}))
	}

	recent, err := history.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "d", recent[0].ID)
	assert.Equal(t, "b", recent[2].ID)

	recent, err = history.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "d", recent[0].ID)

	require.NoError(t, history.Clear(ctx))
	recent, err = history.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
