package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"github.com/streadway/amqp"

	"github.com/okian/matchtag/internal/domain/model"
	"github.com/okian/matchtag/pkg/logger"
	"github.com/okian/matchtag/pkg/metrics"
)

const (
	defaultExchange   = "matchtag.markers"
	defaultRoutingKey = "markers.ready"
	defaultTripAfter  = 3
	defaultOpenFor    = 30 * time.Second
	heartbeat         = 30 * time.Second
)

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func(url string) (channel, io.Closer, error)

func dialAMQP(url string) (channel, io.Closer, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: heartbeat, Locale: "en_US"})
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, conn, nil
}

// AMQPPublisher publishes persistent JSON messages to a topic exchange. The
// connection is opened on first use and reopened after a failed publish. A
// circuit breaker stops dialing a broker that keeps failing.
type AMQPPublisher struct {
	url        string
	exchange   string
	routingKey string
	tripAfter  uint32
	openFor    time.Duration
	dial       dialFunc
	logger     logger.Logger

	breaker *gobreaker.CircuitBreaker

	mu     sync.Mutex
	ch     channel
	conn   io.Closer
	closed bool
}

// NewAMQPPublisher creates a publisher for the broker at url. It does not
// connect until the first Publish.
func NewAMQPPublisher(url string, opts ...Option) *AMQPPublisher {
	p := &AMQPPublisher{
		url:        url,
		exchange:   defaultExchange,
		routingKey: defaultRoutingKey,
		tripAfter:  defaultTripAfter,
		openFor:    defaultOpenFor,
		dial:       dialAMQP,
		logger:     logger.Get().Named("handoff"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "amqp-handoff",
		MaxRequests: 1,
		Timeout:     p.openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= p.tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	return p
}

// Publish sends the markers of matchID. It fails fast with ErrUnavailable
// while the breaker is open.
func (p *AMQPPublisher) Publish(ctx context.Context, matchID string, markers model.MatchTimeMarkers) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(newMessage(matchID, markers))
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publish(matchID, body)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordErrorByComponent("handoff", "breaker_open")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		metrics.RecordErrorByComponent("handoff", "publish_error")
		return err
	}
}

func (p *AMQPPublisher) publish(matchID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.ch == nil {
		if err := p.connect(); err != nil {
			return err
		}
	}
	err := p.ch.Publish(p.exchange, p.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    matchID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) connect() error {
	ch, conn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.ch, p.conn = ch, conn
	p.logger.Info(context.Background(), "connected to broker", logger.String("exchange", p.exchange))
	return nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the connection. Later publishes fail with ErrClosed.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.reset()
	return nil
}
