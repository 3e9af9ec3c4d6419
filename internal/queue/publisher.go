package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/account-auth/internal/logging"
)

const (
	defaultDialTimeout = 2 * time.Second
	defaultRedialAfter = 5 * time.Second
)

// errBrokerUnavailable is returned while a failed dial is cooling down.
var errBrokerUnavailable = errors.New("rabbitmq unavailable")

// Publisher sends envelopes to a durable queue on the default exchange.
// The connection is opened on first use and re-opened after a failure.
// Dialing is bounded by DialTimeout and the request deadline, and after a
// failed dial Publish fails fast until RedialAfter has passed.
type Publisher struct {
	url   string
	queue string
	log   logging.Logger

	DialTimeout time.Duration
	RedialAfter time.Duration
	now         func() time.Time

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

// NewPublisher returns a lazy publisher; nothing is dialed until the first
// Publish.
func NewPublisher(url, queue string, log logging.Logger) *Publisher {
	if log == nil {
		log = logging.Nop{}
	}
	return &Publisher{
		url:         url,
		queue:       queue,
		log:         log.With("component", "publisher"),
		DialTimeout: defaultDialTimeout,
		RedialAfter: defaultRedialAfter,
		now:         time.Now,
	}
}

// Publish marshals {pattern, data} and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, pattern string, data any) error {
	body, err := json.Marshal(Envelope{Pattern: pattern, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", pattern, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         pattern,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", pattern, err)
	}
	p.log.Debug(ctx, "event published", "pattern", pattern)
	return nil
}

// channel returns an open channel, dialing when needed. Caller holds p.mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	if p.now().Before(p.retryAt) {
		return nil, errBrokerUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(p.dialTimeout(ctx)), // covers the AMQP handshake too
	})
	if err != nil {
		p.retryAt = p.now().Add(p.RedialAfter)
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.retryAt = time.Time{}
	return ch, nil
}

// dialTimeout is DialTimeout, shortened to the time left on ctx.
func (p *Publisher) dialTimeout(ctx context.Context) time.Duration {
	d := p.DialTimeout
	if d <= 0 {
		d = defaultDialTimeout
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < d {
			d = left
		}
	}
	return d
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close releases the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	p.conn, p.ch = nil, nil
	return err
}
