// Package events publishes user lifecycle events to a message broker.
// Publishing is best-effort: a broker failure is logged and never fails the
// request that triggered it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/finity-auth/apiserver/internal/mq"
	"github.com/finity-auth/apiserver/types"
)

// Event types carried in the event_type field.
const (
	EventUserRegistered = "user.registered"
	EventUserUpdated    = "user.updated"
	EventUserDeleted    = "user.deleted"
)

// UserEvent is the JSON payload published for every lifecycle event.
type UserEvent struct {
	EventType  string     `json:"event_type"`
	UserID     int        `json:"user_id"`
	Email      string     `json:"email"`
	Role       types.Role `json:"role"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Publisher emits user lifecycle events. A nil Publisher is a valid no-op,
// used when no broker is configured.
type Publisher struct {
	pub    mq.Publisher
	topic  string
	logger zerolog.Logger
}

func NewPublisher(pub mq.Publisher, topic string, logger zerolog.Logger) *Publisher {
	return &Publisher{pub: pub, topic: topic, logger: logger}
}

// UserRegistered publishes a user.registered event.
func (p *Publisher) UserRegistered(ctx context.Context, user types.User) {
	p.publish(ctx, EventUserRegistered, user)
}

// UserUpdated publishes a user.updated event.
func (p *Publisher) UserUpdated(ctx context.Context, user types.User) {
	p.publish(ctx, EventUserUpdated, user)
}

// UserDeleted publishes a user.deleted event.
func (p *Publisher) UserDeleted(ctx context.Context, user types.User) {
	p.publish(ctx, EventUserDeleted, user)
}

// Close closes the underlying broker connection.
func (p *Publisher) Close() error {
	if p == nil || p.pub == nil {
		return nil
	}
	return p.pub.Close()
}

func (p *Publisher) publish(ctx context.Context, eventType string, user types.User) {
	if p == nil || p.pub == nil {
		return
	}

	event := UserEvent{
		EventType:  eventType,
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		OccurredAt: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal user event")
		return
	}

	attrs := map[string]string{"event_type": eventType}
	if _, err := p.pub.Publish(ctx, p.topic, data, attrs); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Int("user_id", user.ID).Msg("failed to publish user event")
	}
}
