package http

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"mlboard/internal/core/domain"
	"mlboard/internal/core/logger"
	"mlboard/internal/core/ports"
)

// Message represents a message to be sent to connected clients
type Message struct {
	Type    string `json:"type"` // "snapshot", "error" or an event type
	Payload any    `json:"payload"`
}

const (
	MessageSnapshot = "snapshot"
	MessageError    = "error"
)

// EventMessage wraps a dashboard event for the websocket.
func EventMessage(event domain.Event) Message {
	return Message{Type: string(event.Type), Payload: event}
}

// Hub fans dashboard events out to every connected session.
type Hub struct {
	// Registered sessions.
	sessions map[*Session]bool

	// Inbound messages from the system to be broadcasted to sessions.
	broadcast chan Message

	// Register requests from the sessions.
	register chan *Session

	// Unregister requests from sessions.
	unregister chan *Session

	// Closed when Run returns.
	done chan struct{}

	// Retry schedule for Consume.
	newBackOff func() backoff.BackOff

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		sessions:   make(map[*Session]bool),
		done:       make(chan struct{}),
		newBackOff: defaultBackOff,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for session := range h.sessions {
				session.close()
				delete(h.sessions, session)
			}
			h.mu.Unlock()
			websocketSessions.Set(0)
			return
		case session := <-h.register:
			h.mu.Lock()
			h.sessions[session] = true
			h.mu.Unlock()
			websocketSessions.Inc()
		case session := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[session]; ok {
				delete(h.sessions, session)
				websocketSessions.Dec()
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for session := range h.sessions {
				if !session.offer(message) {
					// Slow or gone; drop it rather than stall everyone else
					session.close()
					delete(h.sessions, session)
					websocketSessions.Dec()
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Register(session *Session) {
	select {
	case h.register <- session:
	case <-h.done:
		session.close()
	}
}

func (h *Hub) Unregister(session *Session) {
	select {
	case h.unregister <- session:
	case <-h.done:
	}
}

// Broadcast publishes a message to all connected sessions
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Publish broadcasts event to the sessions of this process only.
func (h *Hub) Publish(ctx context.Context, event domain.Event) error {
	eventsBroadcast.WithLabelValues(string(event.Type)).Inc()
	h.Broadcast(EventMessage(event))
	return nil
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Consume broadcasts every event received from the shared bus until ctx is
// done. A failed subscription, or one that ends early, is retried with
// exponential backoff.
func (h *Hub) Consume(ctx context.Context, bus ports.EventPubSub) {
	retry := h.newBackOff()
	for {
		events, err := bus.Subscribe(ctx)
		if err != nil {
			logger.Error("Failed to subscribe to events", "error", err)
		} else {
			retry.Reset()
			logger.Info("Event consumer subscribed")
			if !h.forward(ctx, events) {
				logger.Info("Event consumer shutting down")
				return
			}
			logger.Warn("Event subscription ended, resubscribing")
		}

		wait := retry.NextBackOff()
		select {
		case <-ctx.Done():
			logger.Info("Event consumer shutting down")
			return
		case <-time.After(wait):
		}
	}
}

// forward broadcasts events until the channel closes. It reports false once
// ctx is done.
func (h *Hub) forward(ctx context.Context, events <-chan domain.Event) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return ctx.Err() == nil
			}
			h.Publish(ctx, event)
		}
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	return b
}
