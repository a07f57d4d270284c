package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrUnknownDelivery is returned when acting on a tag this client does not hold
var ErrUnknownDelivery = errors.New("unknown delivery tag")

// Config holds RabbitMQ connection configuration
type Config struct {
	Host              string
	Port              int
	User              string
	Password          string
	VHost             string
	ExchangeName      string // empty means the default exchange
	QueueName         string
	RetryAttempts     int
	RetryInterval     time.Duration
	Heartbeat         time.Duration
	ConnectionTimeout time.Duration
}

// DelayQueueName is the holding queue for messages delayed by delay.
// Each distinct delay gets its own queue so per-queue TTL expires in order.
// The name carries the TTL in milliseconds, matching x-message-ttl.
func DelayQueueName(queue string, delay time.Duration) string {
	return fmt.Sprintf("%s.delay.%d", queue, delay.Milliseconds())
}

// BuriedQueueName is where buried messages are parked for manual review
func BuriedQueueName(queue string) string {
	return queue + ".buried"
}

// Client is one AMQP connection and channel emulating a reserve / put /
// delete / bury work queue on top of a single durable queue. It is meant to
// be owned by exactly one worker.
type Client struct {
	config     *Config
	conn       *amqp.Connection
	channel    *amqp.Channel
	logger     *slog.Logger
	deliveries <-chan amqp.Delivery

	mu          sync.Mutex
	pending     map[uint64]amqp.Delivery
	delayQueues map[string]struct{}
}

// NewClient creates a new RabbitMQ client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config:      config,
		logger:      logger,
		pending:     make(map[uint64]amqp.Delivery),
		delayQueues: make(map[string]struct{}),
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Client) connect() error {
	var err error

	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		c.conn, err = amqp.DialConfig(dsn, amqpConfig)
		if err == nil {
			break
		}

		c.logger.Warn("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := c.setup(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to setup queues: %w", err)
	}

	c.logger.Debug("RabbitMQ client initialized",
		slog.String("exchange", c.config.ExchangeName),
		slog.String("queue", c.config.QueueName),
	)

	return nil
}

// setup declares the work queue, the buried queue and, when an exchange
// is configured, the exchange and its binding
func (c *Client) setup() error {
	if c.config.ExchangeName != "" {
		err := c.channel.ExchangeDeclare(
			c.config.ExchangeName, // name
			amqp.ExchangeDirect,   // type
			true,                  // durable
			false,                 // auto-deleted
			false,                 // internal
			false,                 // no-wait
			nil,                   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange: %w", err)
		}
	}

	if _, err := c.channel.QueueDeclare(c.config.QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if c.config.ExchangeName != "" {
		err := c.channel.QueueBind(
			c.config.QueueName,    // queue name
			c.config.QueueName,    // routing key
			c.config.ExchangeName, // exchange
			false,                 // no-wait
			nil,                   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to bind queue: %w", err)
		}
	}

	buried := BuriedQueueName(c.config.QueueName)
	if _, err := c.channel.QueueDeclare(buried, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare buried queue: %w", err)
	}

	return nil
}

// ensureDelayQueue declares the holding queue for delay on first use
func (c *Client) ensureDelayQueue(delay time.Duration) (string, error) {
	name := DelayQueueName(c.config.QueueName, delay)

	c.mu.Lock()
	_, ok := c.delayQueues[name]
	c.mu.Unlock()
	if ok {
		return name, nil
	}

	_, err := c.channel.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-message-ttl":             delay.Milliseconds(),
		"x-dead-letter-exchange":    c.config.ExchangeName,
		"x-dead-letter-routing-key": c.config.QueueName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to declare delay queue %s: %w", name, err)
	}

	c.mu.Lock()
	c.delayQueues[name] = struct{}{}
	c.mu.Unlock()

	return name, nil
}

// Reserve blocks until a message is delivered or ctx is done.
// The returned id is the delivery tag.
func (c *Client) Reserve(ctx context.Context) (uint64, []byte, error) {
	if c.deliveries == nil {
		if err := c.channel.Qos(1, 0, false); err != nil {
			return 0, nil, fmt.Errorf("failed to set QoS: %w", err)
		}

		deliveries, err := c.channel.Consume(
			c.config.QueueName, // queue
			"",                 // consumer tag
			false,              // auto-ack
			false,              // exclusive
			false,              // no-local
			false,              // no-wait
			nil,                // args
		)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to consume messages: %w", err)
		}
		c.deliveries = deliveries
	}

	select {
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	case d, ok := <-c.deliveries:
		if !ok {
			return 0, nil, fmt.Errorf("delivery channel closed for queue %s", c.config.QueueName)
		}
		c.mu.Lock()
		c.pending[d.DeliveryTag] = d
		c.mu.Unlock()
		return d.DeliveryTag, d.Body, nil
	}
}

// Put publishes body to the work queue, or to a delay holding queue when
// delay is positive. ttr has no AMQP equivalent and is ignored. RabbitMQ
// does not assign ids on publish, so the returned id is always 0.
func (c *Client) Put(ctx context.Context, body []byte, delay, _ time.Duration) (uint64, error) {
	exchange, key := c.config.ExchangeName, c.config.QueueName

	if delay > 0 {
		name, err := c.ensureDelayQueue(delay)
		if err != nil {
			return 0, err
		}
		exchange, key = "", name
	}

	if err := c.publish(ctx, exchange, key, body); err != nil {
		return 0, err
	}
	return 0, nil
}

// Delete acknowledges a reserved message
func (c *Client) Delete(_ context.Context, id uint64) error {
	if _, err := c.take(id); err != nil {
		return err
	}
	if err := c.channel.Ack(id, false); err != nil {
		return fmt.Errorf("failed to ack delivery %d: %w", id, err)
	}
	return nil
}

// Bury copies a reserved message to the buried queue, then acknowledges it
func (c *Client) Bury(ctx context.Context, id uint64) error {
	d, err := c.take(id)
	if err != nil {
		return err
	}

	if err := c.publish(ctx, "", BuriedQueueName(c.config.QueueName), d.Body); err != nil {
		return err
	}
	if err := c.channel.Ack(id, false); err != nil {
		return fmt.Errorf("failed to ack buried delivery %d: %w", id, err)
	}
	return nil
}

func (c *Client) take(id uint64) (amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.pending[id]
	if !ok {
		return amqp.Delivery{}, fmt.Errorf("%w: %d", ErrUnknownDelivery, id)
	}
	delete(c.pending, id)
	return d, nil
}

func (c *Client) publish(ctx context.Context, exchange, key string, body []byte) error {
	err := c.channel.PublishWithContext(
		ctx,
		exchange, // exchange
		key,      // routing key
		false,    // mandatory
		false,    // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", key, err)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	return nil
}
