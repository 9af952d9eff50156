package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"mlboard/internal/core/domain"
	"mlboard/internal/core/logger"
)

const (
	DefaultPrefix = "mlboard"

	disconnectQuiesce = 250 // ms
)

// publishClient is the part of mqtt.Client the publisher uses.
type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher mirrors dashboard events to an MQTT broker.
type Publisher struct {
	client publishClient
	prefix string
}

// NewPublisher connects to brokerURL and returns a publisher writing under
// prefix.
func NewPublisher(brokerURL, prefix string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("mlboard-server-%d", time.Now().UnixNano()))
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", token.Error())
	}

	logger.Info("Connected to MQTT broker", "url", brokerURL)
	return newPublisher(client, prefix), nil
}

func newPublisher(client publishClient, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{client: client, prefix: prefix}
}

// Topic returns the topic events of type typ are published on.
func (p *Publisher) Topic(typ domain.EventType) string {
	return fmt.Sprintf("%s/events/%s", p.prefix, typ)
}

// Publish sends event at QoS 0 and waits for the client to hand it off.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := p.client.Publish(p.Topic(event.Type), 0, false, data)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish to mqtt: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if c, ok := p.client.(mqtt.Client); ok {
		c.Disconnect(disconnectQuiesce)
	}
}
