package transport

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nutc-exchange/core/internal/domain"
)

// Transport is the collaborator spec.md §6 names as external: a blocking
// receive of one decoded inbound message, and best-effort publication of
// outbound updates, matches, and per-client shutdown notices.
type Transport interface {
	Recv(ctx context.Context) (any, error)
	PublishObUpdate(u domain.ObUpdate) error
	PublishMatch(m domain.Match) error
	PublishShutdown(clientID domain.ClientID) error
	Close() error
}

// Config names the RabbitMQ connection this Transport dials, grounded on
// original_source/src/rabbitmq/rabbitmq.cpp::connectToRabbitMQ and
// initializeConnection.
type Config struct {
	Host             string
	Port             int
	User             string
	Pass             string
	MarketOrderQueue string
	UpdatesExchange  string
}

// AMQPTransport implements Transport over RabbitMQ using amqp091-go. It
// mirrors the three setup steps of the source's initializeConnection:
// connect, declare the inbound queue, and begin consuming it.
type AMQPTransport struct {
	cfg  Config
	conn *amqp.Connection
	ch   *amqp.Channel

	deliveries <-chan amqp.Delivery
}

// Dial connects to RabbitMQ, declares the durable inbound queue and the
// outbound fanout exchange, and begins consuming the inbound queue.
func Dial(cfg Config) (*AMQPTransport, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Pass, cfg.Host, cfg.Port)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("transport: cannot connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: cannot open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.MarketOrderQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("transport: failed to declare queue %q: %w", cfg.MarketOrderQueue, err)
	}

	if err := ch.ExchangeDeclare(cfg.UpdatesExchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("transport: failed to declare exchange %q: %w", cfg.UpdatesExchange, err)
	}

	deliveries, err := ch.Consume(cfg.MarketOrderQueue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("transport: failed to consume queue %q: %w", cfg.MarketOrderQueue, err)
	}

	return &AMQPTransport{cfg: cfg, conn: conn, ch: ch, deliveries: deliveries}, nil
}

// Recv blocks for the next inbound delivery, decodes it, and acks it.
// A closed delivery channel or a cancelled ctx surfaces as a transport
// error (spec.md §7 item 1) — the caller, not Recv, decides whether that
// is fatal.
func (t *AMQPTransport) Recv(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d, ok := <-t.deliveries:
		if !ok {
			return nil, fmt.Errorf("transport: delivery channel closed")
		}
		msg := Decode(d.Body)
		_ = d.Ack(false)
		return msg, nil
	}
}

// PublishObUpdate broadcasts u to the updates fanout exchange.
func (t *AMQPTransport) PublishObUpdate(u domain.ObUpdate) error {
	body, err := EncodeObUpdate(u)
	if err != nil {
		return err
	}
	return t.publishFanout(body)
}

// PublishMatch broadcasts m to the updates fanout exchange.
func (t *AMQPTransport) PublishMatch(m domain.Match) error {
	body, err := EncodeMatch(m)
	if err != nil {
		return err
	}
	return t.publishFanout(body)
}

// PublishShutdown delivers a Shutdown notice to clientID's own queue,
// mirroring closeConnection's per-client publishMessage(uid, ...) call.
func (t *AMQPTransport) PublishShutdown(clientID domain.ClientID) error {
	body, err := EncodeShutdown(Shutdown{ClientID: clientID})
	if err != nil {
		return err
	}
	return t.ch.PublishWithContext(context.Background(), "", string(clientID), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (t *AMQPTransport) publishFanout(body []byte) error {
	return t.ch.PublishWithContext(context.Background(), t.cfg.UpdatesExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Close tears down the channel and connection, mirroring closeConnection.
func (t *AMQPTransport) Close() error {
	if err := t.ch.Close(); err != nil {
		t.conn.Close()
		return err
	}
	return t.conn.Close()
}
