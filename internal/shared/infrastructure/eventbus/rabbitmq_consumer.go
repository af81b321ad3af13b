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

// DefaultConsumerQueueName is the queue the score worker consumes from.
const DefaultConsumerQueueName = "gritline.scores"

// ErrConsumerClosed is returned by Start and Check after Close.
var ErrConsumerClosed = errors.New("consumer closed")

// RabbitMQConsumerConfig configures the RabbitMQ consumer.
type RabbitMQConsumerConfig struct {
	URL       string
	QueueName string
	// Exchange defaults to ExchangeName.
	Exchange string
	// Prefetch bounds unacknowledged deliveries. Defaults to 1.
	Prefetch int
	Logger   *slog.Logger
}

// RabbitMQConsumer feeds a durable queue bound to the domain event exchange
// into a ConsumerRegistry. A failed delivery is redelivered once and then
// dropped; undecodable messages are dropped at once.
type RabbitMQConsumer struct {
	cfg      RabbitMQConsumerConfig
	conn     *amqp.Connection
	channel  *amqp.Channel
	registry *ConsumerRegistry
	logger   *slog.Logger

	mu        sync.Mutex
	running   bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewRabbitMQConsumer dials the broker and declares the queue.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *ConsumerRegistry) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueName == "" {
		cfg.QueueName = DefaultConsumerQueueName
	}
	if cfg.Exchange == "" {
		cfg.Exchange = ExchangeName
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}

	conn, ch, err := dialExchange(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.QueueName, err)
	}

	cfg.Logger.Info("RabbitMQ consumer connected", "queue", cfg.QueueName, "exchange", cfg.Exchange)
	return &RabbitMQConsumer{
		cfg:      cfg,
		conn:     conn,
		channel:  ch,
		registry: registry,
		logger:   cfg.Logger,
		done:     make(chan struct{}),
	}, nil
}

// RegisterConsumer adds consumer to the registry. Its routing keys are
// bound to the queue when Start runs.
func (c *RabbitMQConsumer) RegisterConsumer(consumer EventConsumer) {
	c.registry.Register(consumer)
}

// Start binds every registered routing key and processes deliveries until
// ctx is done or Close is called.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	deliveries, err := c.subscribe()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return ErrConsumerClosed
		case msg, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed by broker")
			}
			c.settle(msg, c.process(ctx, msg))
		}
	}
}

func (c *RabbitMQConsumer) subscribe() (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.registry.GetAllEventTypes() {
		if err := c.channel.QueueBind(c.cfg.QueueName, key, c.cfg.Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	if err := c.channel.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}
	deliveries, err := c.channel.Consume(c.cfg.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consuming events",
		"queue", c.cfg.QueueName,
		"routing_keys", c.registry.GetAllEventTypes(),
	)
	return deliveries, nil
}

func (c *RabbitMQConsumer) process(ctx context.Context, msg amqp.Delivery) error {
	event, err := decodeEnvelope(msg.Body, msg.RoutingKey)
	if err != nil {
		c.logger.Error("dropping undecodable message", "routing_key", msg.RoutingKey, "error", err)
		return nil
	}

	start := time.Now()
	err = c.registry.Dispatch(ctx, event)
	c.logger.Debug("event dispatched",
		"routing_key", event.RoutingKey,
		"event_id", event.EventID,
		"duration_ms", time.Since(start).Milliseconds(),
		"ok", err == nil,
	)
	return err
}

// settle acks a handled delivery. A failed one is requeued unless it was
// already redelivered.
func (c *RabbitMQConsumer) settle(msg amqp.Delivery, err error) {
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack message", "error", ackErr)
		}
		return
	}

	requeue := !msg.Redelivered
	c.logger.Warn("event handling failed",
		"routing_key", msg.RoutingKey,
		"requeue", requeue,
		"error", err,
	)
	if nackErr := msg.Nack(false, requeue); nackErr != nil {
		c.logger.Error("failed to nack message", "error", nackErr)
	}
}

// Check reports whether the broker connection is open.
func (c *RabbitMQConsumer) Check(context.Context) error {
	select {
	case <-c.done:
		return ErrConsumerClosed
	default:
	}
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("broker connection lost")
	}
	return nil
}

// Close stops Start and closes the channel and the connection. It is safe
// to call more than once.
func (c *RabbitMQConsumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.running = false
		if c.channel != nil {
			if cerr := c.channel.Close(); cerr != nil {
				c.logger.Warn("error closing channel", "error", cerr)
			}
		}
		if c.conn != nil {
			err = c.conn.Close()
		}
		c.logger.Info("RabbitMQ consumer closed")
	})
	return err
}
