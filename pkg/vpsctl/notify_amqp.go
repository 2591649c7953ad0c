/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

const DefaultEventExchange = "vpsctl_events"

// AmqpNotifier publishes events on a topic exchange, routed by
// "vps.<event type>", for the chat bridge to consume.
type AmqpNotifier struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAmqpNotifier connects to the broker and declares the exchange.
func NewAmqpNotifier(url, exchange string) (*AmqpNotifier, error) {
	if exchange == "" {
		exchange = DefaultEventExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AmqpNotifier{conn: conn, channel: channel, exchange: exchange}, nil
}

// RoutingKey returns the routing key an event is published with.
func RoutingKey(ev types.Event) string {
	return "vps." + string(ev.Type)
}

func (n *AmqpNotifier) Notify(ctx context.Context, ev types.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.channel.PublishWithContext(
		ctx,
		n.exchange,
		RoutingKey(ev),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.Id,
			Timestamp:    time.Now(),
		},
	)
}

// Close closes the channel and the connection.
func (n *AmqpNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.channel.Close(); err != nil {
		n.conn.Close()
		return err
	}
	return n.conn.Close()
}
