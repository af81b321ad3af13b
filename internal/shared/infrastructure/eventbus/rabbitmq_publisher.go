package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange domain events are published to.
const ExchangeName = "gritline.domain.events"

// ErrPublisherClosed is returned after Close or a lost connection.
var ErrPublisherClosed = errors.New("publisher connection closed")

// RabbitMQPublisher publishes events to a RabbitMQ topic exchange.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewRabbitMQPublisher dials url and declares the exchange.
func NewRabbitMQPublisher(url string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, ch, err := dialExchange(url, ExchangeName)
	if err != nil {
		return nil, err
	}

	logger.Info("RabbitMQ publisher connected", "exchange", ExchangeName)

	return &RabbitMQPublisher{
		conn:     conn,
		channel:  ch,
		exchange: ExchangeName,
		logger:   logger,
	}, nil
}

// dialExchange opens a channel and declares the durable topic exchange.
func dialExchange(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return conn, ch, nil
}

// Publish sends a persistent JSON message with the given routing key.
func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		return ErrPublisherClosed
	}

	err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		AppId:        "gritline",
		Body:         payload,
	})
	if err != nil {
		p.logger.Error("failed to publish message", "routing_key", routingKey, "error", err)
		return err
	}

	p.logger.Debug("message published", "routing_key", routingKey, "size", len(payload))
	return nil
}

// Check reports whether the broker connection is still open.
func (p *RabbitMQPublisher) Check(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return ErrPublisherClosed
	}
	return nil
}

// Close closes the channel and the connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("error closing channel", "error", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return err
		}
	}

	p.logger.Info("RabbitMQ publisher closed")
	return nil
}

// NoopPublisher drops every message.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that does nothing.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

// Publish logs the message at debug level.
func (p *NoopPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.logger.Debug("noop publish", "routing_key", routingKey, "size", len(payload))
	return nil
}

// Close is a no-op.
func (p *NoopPublisher) Close() error {
	return nil
}
