package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ErrDiscard marks a handler failure that retrying cannot fix. Such
// messages are rejected without requeue.
var ErrDiscard = errors.New("discard message")

var errDeliveriesClosed = errors.New("delivery channel closed")

const (
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// channel is the subset of *amqp091.Channel the client uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

type Config struct {
	URL         string
	Exchange    string
	EventsQueue string
	SMSQueue    string
}

type Client struct {
	cfg Config

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel channel
}

// NewClient dials the broker and declares the exchange plus every
// configured queue, each bound with its own name as routing key.
func NewClient(cfg Config) (*Client, error) {
	c := &Client{cfg: cfg}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(ch, c.cfg); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()
	return nil
}

func setup(ch *amqp091.Channel, cfg Config) error {
	err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{cfg.EventsQueue, cfg.SMSQueue} {
		if q == "" {
			continue
		}
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, q, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}

func (c *Client) current() channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// PublishExpenseRecorded sends msg to the events queue.
func (c *Client) PublishExpenseRecorded(ctx context.Context, msg *ExpenseRecorded) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := c.current()
	if ch == nil {
		return errors.New("amqp channel not open")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.cfg.Exchange,    // exchange
		c.cfg.EventsQueue, // routing key
		false,             // mandatory
		false,             // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.DebugContext(ctx, "Published expense recorded event",
		"expense_id", msg.ID,
		"user_id", msg.UserID,
		"exchange", c.cfg.Exchange,
		"queue", c.cfg.EventsQueue)
	return nil
}

// SMSHandler processes one decoded SMS expense.
type SMSHandler func(ctx context.Context, msg *SMSExpense) error

// ConsumeSMSExpenses consumes the SMS queue until ctx is done or the
// delivery channel closes. Undecodable messages and handler errors
// wrapping ErrDiscard are rejected; other handler errors are requeued.
func (c *Client) ConsumeSMSExpenses(ctx context.Context, handler SMSHandler) error {
	ch := c.current()
	if ch == nil {
		return errors.New("amqp channel not open")
	}
	msgs, err := ch.Consume(
		c.cfg.SMSQueue, // queue
		"",             // consumer
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming SMS expenses", "queue", c.cfg.SMSQueue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			handleDelivery(ctx, delivery, handler)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp091.Delivery, handler SMSHandler) {
	msg, err := SMSExpenseFromJSON(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal SMS message", "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		requeue := !errors.Is(err, ErrDiscard)
		slog.ErrorContext(ctx, "Failed to handle SMS message",
			"error", err,
			"user_id", msg.UserID,
			"merchant", msg.Merchant,
			"requeue", requeue)
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

// RunSMSConsumer keeps ConsumeSMSExpenses running, reconnecting with
// exponential backoff after connection failures.
func (c *Client) RunSMSConsumer(ctx context.Context, handler SMSHandler) error {
	attempt := 0
	for {
		err := c.ConsumeSMSExpenses(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting", "error", err, "backoff", wait.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		c.closeConn()
		if err := c.connect(); err != nil {
			slog.ErrorContext(ctx, "AMQP reconnect failed", "error", err)
			attempt++
			continue
		}
		attempt = 0
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, errDeliveriesClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.closeConn()
	return nil
}
