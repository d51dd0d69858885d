// Package events publishes claim lifecycle events to a message broker so
// other services can notify reporters and claimants.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/erazemk/lostfound/internal/model"
)

// Event types.
const (
	ClaimFiled    = "claim.filed"
	ClaimReviewed = "claim.reviewed"
)

// ClaimEvent is the message body published for each claim change.
type ClaimEvent struct {
	Type        string    `json:"type"`
	ClaimID     int64     `json:"claim_id"`
	ItemID      int64     `json:"item_id"`
	ClaimantID  int64     `json:"claimant_id"`
	ReviewerID  int64     `json:"reviewer_id,omitempty"`
	ClaimStatus string    `json:"claim_status"`
	ItemStatus  string    `json:"item_status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewClaimEvent builds an event of the given type from a claim with its item
// status joined.
func NewClaimEvent(eventType string, c *model.Claim) ClaimEvent {
	ev := ClaimEvent{
		Type:        eventType,
		ClaimID:     c.ID,
		ItemID:      c.ItemID,
		ClaimantID:  c.ClaimantID,
		ClaimStatus: c.Status,
		ItemStatus:  c.ItemStatus,
		OccurredAt:  time.Now().UTC(),
	}
	if c.ReviewedBy != nil {
		ev.ReviewerID = *c.ReviewedBy
	}
	return ev
}

// Publisher sends claim events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev ClaimEvent) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, ClaimEvent) error { return nil }

// AMQPPublisher publishes events as persistent JSON messages to a durable
// queue on the default exchange. Each publish opens its own connection.
type AMQPPublisher struct {
	URL         string
	Queue       string
	DialTimeout time.Duration
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, ev ClaimEvent) error {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return fmt.Errorf("dialing broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", p.Queue, err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", ev.Type, err)
	}
	return nil
}

// Emit publishes ev and logs failures. Events are best effort, so the
// caller's request never fails because of them.
func Emit(ctx context.Context, p Publisher, ev ClaimEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		slog.Error("failed to publish claim event", "type", ev.Type, "claim", ev.ClaimID, "error", err)
	}
}
