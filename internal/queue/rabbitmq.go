// Package queue provides durable, at-least-once job queues over RabbitMQ.
// Consumers are explicit values constructed with an injected handler and
// started by the process lifecycle owner; there is no module-level worker
// state.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchange = "tubebrief"

// Handler processes one delivery. A non-nil error routes the payload to the
// failure hook; the message is not redelivered.
type Handler func(ctx context.Context, body []byte) error

// FailureHook runs after a handler error, e.g. to persist a failed status.
type FailureHook func(ctx context.Context, body []byte, err error)

// Client owns the AMQP connection. One per process.
type Client struct {
	conn   *amqp.Connection
	logger *slog.Logger
}

// Dial connects to RabbitMQ and declares the shared exchange.
func Dial(url string, logger *slog.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	logger.Info("connected to rabbitmq", "exchange", exchange)
	return &Client{conn: conn, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Queue is one durable named queue bound to the shared exchange. The queue
// name doubles as the routing key.
type Queue struct {
	mu      sync.Mutex
	channel *amqp.Channel
	name    string
	logger  *slog.Logger
}

// DeclareQueue declares a durable queue and binds it to the exchange.
func (c *Client) DeclareQueue(name string) (*Queue, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", name, err)
	}

	if err := ch.QueueBind(q.Name, name, exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind queue %s: %w", name, err)
	}

	return &Queue{channel: ch, name: name, logger: c.logger.With("queue", name)}, nil
}

// Publish enqueues one persistent message.
func (q *Queue) Publish(ctx context.Context, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	err := q.channel.PublishWithContext(ctx, exchange, q.name, false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", q.name, err)
	}
	return nil
}

func (q *Queue) Close() error {
	return q.channel.Close()
}

// Consumer services one queue with a fixed-size worker pool.
type Consumer struct {
	queue     *Queue
	workers   int
	handler   Handler
	onFailure FailureHook
}

// NewConsumer builds a consumer. It does nothing until Run is called.
func NewConsumer(q *Queue, workers int, handler Handler, onFailure FailureHook) *Consumer {
	return &Consumer{queue: q, workers: workers, handler: handler, onFailure: onFailure}
}

// Run consumes deliveries until the context is cancelled or the channel
// closes. Handler errors are routed to the failure hook and the message is
// dropped — recovery is an explicit user-initiated retry, never automatic
// redelivery.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.queue.channel.Qos(c.workers, 0, false); err != nil {
		return fmt.Errorf("set qos on %s: %w", c.queue.name, err)
	}

	deliveries, err := c.queue.channel.Consume(c.queue.name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue.name, err)
	}

	c.queue.logger.Info("consumer started", "workers", c.workers)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					c.process(ctx, d)
				}
			}
		}()
	}
	wg.Wait()

	c.queue.logger.Info("consumer stopped")
	return nil
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	if err := c.handler(ctx, d.Body); err != nil {
		c.queue.logger.Error("job failed", "error", err)
		if c.onFailure != nil {
			c.onFailure(ctx, d.Body, err)
		}
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
