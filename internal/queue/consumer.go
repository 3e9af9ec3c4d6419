package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/account-auth/internal/logging"
)

// ConsumerConfig configures StartEventConsumer.
type ConsumerConfig struct {
	URL      string
	Queue    string
	LogDir   string // events.log is appended here
	Prefetch int
}

// StartEventConsumer connects to RabbitMQ, declares the events queue
// (durable) and appends one line per message to <LogDir>/events.log. It
// reconnects with exponential backoff and returns only when ctx is done.
func StartEventConsumer(ctx context.Context, cfg ConsumerConfig, log logging.Logger) error {
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 50
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Warn(ctx, "event-consumer: failed to dial broker", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, cfg, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn(ctx, "event-consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, log logging.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		log.Warn(ctx, "event-consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := appendEvent(cfg.LogDir, d.Body); err != nil {
				log.Error(ctx, "event-consumer: handle message failed", "error", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func appendEvent(dir string, body []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "events.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return WriteEventLine(f, body, time.Now().UTC())
}

// eventRecord is the union of every payload field the log line shows.
type eventRecord struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	User      *UserRef   `json:"user"`
	Token     string     `json:"token"`
	Code      string     `json:"code"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// WriteEventLine decodes one envelope and writes a single human-friendly line.
func WriteEventLine(w io.Writer, body []byte, at time.Time) error {
	var env struct {
		Pattern string          `json:"pattern"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if env.Pattern == "" {
		return errors.New("unmarshal: envelope has no pattern")
	}
	var rec eventRecord
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &rec); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", env.Pattern, err)
		}
	}
	user := UserRef{ID: rec.ID, Username: rec.Username, Email: rec.Email}
	if rec.User != nil {
		user = *rec.User
	}

	parts := []string{
		fmt.Sprintf("[%s] %s", at.Format(time.RFC3339), env.Pattern),
		"user_id=" + user.ID,
		"username=" + user.Username,
		"email=" + user.Email,
	}
	if rec.Token != "" {
		parts = append(parts, "token="+rec.Token)
	}
	if rec.Code != "" {
		parts = append(parts, "code="+rec.Code)
	}
	if rec.ExpiresAt != nil {
		parts = append(parts, "expires_at="+rec.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if _, err := io.WriteString(w, strings.Join(parts, " | ")+"\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
