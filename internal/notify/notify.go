package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is prepended to the intersection ID to form the event subject.
const SubjectPrefix = "signal.decisions."

// Event is published after every committed decision.
type Event struct {
	DecisionID     string    `json:"decision_id"`
	IntersectionID string    `json:"intersection_id"`
	NextGreenLane  int       `json:"next_green_lane"`
	GreenDuration  int       `json:"green_duration"`
	Reason         string    `json:"reason"`
	Switched       bool      `json:"switched"`
	CreatedAt      time.Time `json:"created_at"`
}

// Subject returns the NATS subject for an intersection.
func Subject(intersectionID string) string {
	return SubjectPrefix + intersectionID
}

// conn is the subset of *nats.Conn used for publishing.
type conn interface {
	Publish(subj string, data []byte) error
	Flush() error
	Close()
}

// Config holds NATS connection settings.
type Config struct {
	URL            string
	Name           string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

// DefaultConfig returns settings for a local NATS server.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		Name:           "signal-controller",
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  60,
		ConnectTimeout: 5 * time.Second,
	}
}

// NATSPublisher publishes decision events as JSON.
type NATSPublisher struct {
	conn conn
}

// Connect dials NATS and returns a publisher.
func Connect(cfg Config) (*NATSPublisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish sends one event. The context is only checked before publishing;
// nats.Conn buffers the write.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(Subject(ev.IntersectionID), payload); err != nil {
		return fmt.Errorf("publish %s: %w", ev.DecisionID, err)
	}
	return nil
}

// Close flushes pending events and closes the connection.
func (p *NATSPublisher) Close() error {
	err := p.conn.Flush()
	p.conn.Close()
	return err
}

// Nop discards events.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }
