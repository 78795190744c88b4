package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/metrics"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type connection interface {
	openChannel() (channel, error)
	IsClosed() bool
	Close() error
}

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) openChannel() (channel, error) {
	ch, err := c.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

// AMQPPublisher sends conversation events to a topic exchange. A dropped broker
// connection is redialed on the next publish.
type AMQPPublisher struct {
	url      string
	exchange string
	dial     func(url string) (connection, error)
	log      zerolog.Logger

	mu   sync.Mutex
	conn connection
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string, log zerolog.Logger) (*AMQPPublisher, error) {
	return newPublisher(url, exchange, dialAMQP, log)
}

func newPublisher(url, exchange string, dial func(string) (connection, error), log zerolog.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		url:      url,
		exchange: exchange,
		dial:     dial,
		log:      log.With().Str("component", "event-publisher").Logger(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	p.log.Info().Str("exchange", exchange).Msg("conversation events enabled")
	return p, nil
}

// PublishConversationUpdated publishes event with routing key conversation.<id>.
func (p *AMQPPublisher) PublishConversationUpdated(ctx context.Context, event domain.Event) error {
	msg, err := encode(event)
	if err != nil {
		metrics.RecordEvent("error")
		return err
	}

	ch, err := p.channel()
	if err != nil {
		metrics.RecordEvent("error")
		return err
	}
	defer ch.Close()

	if err := ch.Publish(p.exchange, RoutingKey(event.ConversationID), false, false, msg); err != nil {
		metrics.RecordEvent("error")
		return fmt.Errorf("publish conversation event: %w", err)
	}
	metrics.RecordEvent("success")
	return nil
}

// channel opens a channel on the live connection. On failure the connection is
// dropped and redialed once.
func (p *AMQPPublisher) channel() (channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if p.conn == nil || p.conn.IsClosed() {
			if p.conn != nil {
				p.log.Warn().Msg("broker connection lost, redialing")
				_ = p.conn.Close()
				p.conn = nil
			}
			if err := p.connectLocked(); err != nil {
				return nil, err
			}
		}

		ch, err := p.conn.openChannel()
		if err == nil {
			return ch, nil
		}
		lastErr = err
		_ = p.conn.Close()
		p.conn = nil
	}
	return nil, fmt.Errorf("open amqp channel: %w", lastErr)
}

func (p *AMQPPublisher) connectLocked() error {
	conn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.openChannel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}

	p.conn = conn
	return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// RoutingKey returns the topic for one conversation.
func RoutingKey(conversationID string) string {
	return "conversation." + conversationID
}

func encode(event domain.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode conversation event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.Timestamp,
		Type:         "conversation.updated",
		Body:         body,
	}, nil
}

// NoopPublisher drops events. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishConversationUpdated(context.Context, domain.Event) error {
	return nil
}

var (
	_ domain.EventPublisher = (*AMQPPublisher)(nil)
	_ domain.EventPublisher = NoopPublisher{}
)
