package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mlboard/internal/core/domain"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	sent  []published
	token mqtt.Token
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, payload: payload.([]byte)})
	return c.token
}

func TestPublisher_Publish(t *testing.T) {
	client := &fakeClient{token: completedToken(nil)}
	p := newPublisher(client, "")

	event := domain.Event{ID: "1", Type: domain.EventDagStopped, Payload: map[string]any{"id": float64(2)}}
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, client.sent, 1)
	assert.Equal(t, "mlboard/events/dag_stopped", client.sent[0].topic)

	var got domain.Event
	require.NoError(t, json.Unmarshal(client.sent[0].payload, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Payload, got.Payload)
}

func TestPublisher_Topic(t *testing.T) {
	p := newPublisher(&fakeClient{}, "lab")
	assert.Equal(t, "lab/events/report_toggled", p.Topic(domain.EventReportToggled))
}

func TestPublisher_TokenError(t *testing.T) {
	p := newPublisher(&fakeClient{token: completedToken(errors.New("not connected"))}, "")

	err := p.Publish(context.Background(), domain.Event{Type: domain.EventStatusChanged})
	assert.ErrorContains(t, err, "not connected")
}

func TestPublisher_ContextCancelled(t *testing.T) {
	pending := &fakeToken{done: make(chan struct{})}
	p := newPublisher(&fakeClient{token: pending}, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, domain.Event{Type: domain.EventStatusChanged})
	assert.ErrorIs(t, err, context.Canceled)
}
