// internal/messaging/rabbit.go
package messaging

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/streadway/amqp"

	"chat-relay/internal/model"
)

// Client publishes persisted-message events to per-tenant queues so
// external consumers can follow the relay without polling it. Publishing is
// best effort: a broker failure is logged and never blocks the write path.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
}

func NewClient(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &Client{
		conn:    conn,
		channel: ch,
		URL:     url,
	}, nil
}

// DeclareQueue creates a tenant-specific durable event queue
func (c *Client) DeclareQueue(tenantID string) error {
	queueName := fmt.Sprintf("tenant_%s_events", tenantID)

	_, err := c.channel.QueueDeclare(
		queueName,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	log.Printf("[Rabbit] Event queue declared for tenant %s", tenantID)
	return nil
}

// MessagePersisted publishes one durably-written message to the tenant's
// event queue.
func (c *Client) MessagePersisted(tenantID string, msg model.Message) {
	queueName := fmt.Sprintf("tenant_%s_events", tenantID)

	body, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Rabbit] Failed to encode event for tenant %s: %v", tenantID, err)
		return
	}

	err = c.channel.Publish(
		"",        // default exchange
		queueName, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		log.Printf("[Rabbit] Failed to publish event for tenant %s: %v", tenantID, err)
	}
}

// Close cleans up connection and channel
func (c *Client) Close() error {
	if err := c.channel.Close(); err != nil {
		return err
	}
	if err := c.conn.Close(); err != nil {
		return err
	}
	return nil
}
