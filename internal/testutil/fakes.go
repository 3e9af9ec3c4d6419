package testutil

import (
	"context"
	"strings"
	"sync"
	"time"
)

// PlainHasher is a fast, reversible PasswordHasher for tests.
type PlainHasher struct{}

func (PlainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (PlainHasher) Compare(hash, plain string) bool {
	return strings.TrimPrefix(hash, "hashed:") == plain && strings.HasPrefix(hash, "hashed:")
}

// PublishedEvent is one call recorded by RecordingPublisher.
type PublishedEvent struct {
	Pattern string
	Data    any
}

// RecordingPublisher keeps every published event. Set Err to make Publish fail.
type RecordingPublisher struct {
	mu     sync.Mutex
	Err    error
	events []PublishedEvent
}

func (p *RecordingPublisher) Publish(_ context.Context, pattern string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, PublishedEvent{Pattern: pattern, Data: data})
	return nil
}

func (p *RecordingPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}

// Patterns lists the published patterns in order.
func (p *RecordingPublisher) Patterns() []string {
	var out []string
	for _, e := range p.Events() {
		out = append(out, e.Pattern)
	}
	return out
}

// Last returns the most recent event with pattern.
func (p *RecordingPublisher) Last(pattern string) (PublishedEvent, bool) {
	ev := p.Events()
	for i := len(ev) - 1; i >= 0; i-- {
		if ev[i].Pattern == pattern {
			return ev[i], true
		}
	}
	return PublishedEvent{}, false
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
