package http

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	redis_adapter "mlboard/internal/adapters/pubsub/redis"
	"mlboard/internal/core/domain"
)

type channelBus struct {
	events chan domain.Event
}

func (b *channelBus) Publish(ctx context.Context, event domain.Event) error {
	b.events <- event
	return nil
}

func (b *channelBus) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	return b.events, nil
}

func TestHub_BroadcastReachesSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	first := &Session{send: make(chan Message, 1), done: make(chan struct{})}
	second := &Session{send: make(chan Message, 1), done: make(chan struct{})}
	hub.Register(first)
	hub.Register(second)

	hub.Broadcast(Message{Type: "ping"})

	for _, s := range []*Session{first, second} {
		select {
		case msg := <-s.send:
			assert.Equal(t, "ping", msg.Type)
		case <-time.After(waitTimeout):
			t.Fatal("message not delivered")
		}
	}
}

func TestHub_DropsSlowSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	slow := &Session{send: make(chan Message, 1), done: make(chan struct{})}
	hub.Register(slow)

	hub.Broadcast(Message{Type: "one"})
	hub.Broadcast(Message{Type: "two"})

	select {
	case <-slow.done:
	case <-time.After(waitTimeout):
		t.Fatal("slow session not closed")
	}
	assert.Equal(t, 0, hub.Count())
}

func TestHub_ConsumeForwardsBusEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	session := &Session{send: make(chan Message, 4), done: make(chan struct{})}
	hub.Register(session)

	bus := &channelBus{events: make(chan domain.Event, 1)}
	go hub.Consume(ctx, bus)
	require.NoError(t, bus.Publish(ctx, domain.Event{ID: "e", Type: domain.EventStatusChanged}))

	select {
	case msg := <-session.send:
		assert.Equal(t, string(domain.EventStatusChanged), msg.Type)
		event, ok := msg.Payload.(domain.Event)
		require.True(t, ok)
		assert.Equal(t, "e", event.ID)
	case <-time.After(waitTimeout):
		t.Fatal("event not forwarded")
	}
}

func TestHub_StopClosesSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	session := &Session{send: make(chan Message, 1), done: make(chan struct{})}
	hub.Register(session)
	cancel()

	select {
	case <-session.done:
	case <-time.After(waitTimeout):
		t.Fatal("session not closed")
	}

	// Calls after shutdown return instead of blocking.
	hub.Broadcast(Message{Type: "late"})
	hub.Unregister(session)
}

func fastRetry() backoff.BackOff {
	return backoff.NewConstantBackOff(10 * time.Millisecond)
}

// flakyBus fails its first subscriptions, then hands out channels that the
// test can close to end a subscription.
type flakyBus struct {
	failures atomic.Int32
	subs     chan chan domain.Event
}

func (b *flakyBus) Publish(ctx context.Context, event domain.Event) error {
	return errors.New("not used")
}

func (b *flakyBus) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	if b.failures.Add(-1) >= 0 {
		return nil, errors.New("connection refused")
	}
	ch := make(chan domain.Event, 1)
	b.subs <- ch
	return ch, nil
}

func nextSub(t *testing.T, b *flakyBus) chan domain.Event {
	t.Helper()
	select {
	case ch := <-b.subs:
		return ch
	case <-time.After(waitTimeout):
		t.Fatal("consumer did not subscribe")
		return nil
	}
}

func TestHub_ConsumeRetriesAndResubscribes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	hub.newBackOff = fastRetry
	go hub.Run(ctx)

	session := &Session{send: make(chan Message, 4), done: make(chan struct{})}
	hub.Register(session)

	bus := &flakyBus{subs: make(chan chan domain.Event, 2)}
	bus.failures.Store(3)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		hub.Consume(ctx, bus)
	}()

	// Subscribes after three failures, then again once the first channel closes.
	first := nextSub(t, bus)
	close(first)
	second := nextSub(t, bus)
	second <- domain.Event{ID: "after-resubscribe", Type: domain.EventDagStopped}

	select {
	case msg := <-session.send:
		event, ok := msg.Payload.(domain.Event)
		require.True(t, ok)
		assert.Equal(t, "after-resubscribe", event.ID)
	case <-time.After(waitTimeout):
		t.Fatal("event not forwarded after resubscribe")
	}

	cancel()
	select {
	case <-consumed:
	case <-time.After(waitTimeout):
		t.Fatal("Consume did not return on cancel")
	}
}

func TestHub_ConsumeRecoversWhenRedisStartsLate(t *testing.T) {
	// Reserve an address, then leave it closed until the consumer is running.
	reserved, err := miniredis.Run()
	require.NoError(t, err)
	addr := reserved.Addr()
	reserved.Close()

	client := goredis.NewClient(&goredis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	bus := redis_adapter.NewAdapter(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	hub.newBackOff = fastRetry
	go hub.Run(ctx)

	session := &Session{send: make(chan Message, 16), done: make(chan struct{})}
	hub.Register(session)
	go hub.Consume(ctx, bus)

	time.Sleep(50 * time.Millisecond)
	late := miniredis.NewMiniRedis()
	require.NoError(t, late.StartAddr(addr))
	t.Cleanup(late.Close)

	// Keep publishing until the resubscribed consumer picks one up.
	require.Eventually(t, func() bool {
		_ = bus.Publish(ctx, domain.Event{ID: "late", Type: domain.EventDagStopped})
		select {
		case msg := <-session.send:
			event, ok := msg.Payload.(domain.Event)
			return ok && event.ID == "late"
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}
