// Package events pushes typed realtime notifications to per-user and admin
// channels. Delivery is best effort: a failed publish is logged and never
// fails the money-moving operation that produced it, and publishes happen
// strictly after the enclosing database transaction commits.
package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/fikir-app/fikir-backend/internal/support/log"
)

var (
	ErrGroupRequired = errors.New("message group is required")
	ErrTypeRequired  = errors.New("message type is required")
	ErrDataRequired  = errors.New("message data is required")
)

// Message is one notification addressed to a channel group.
type Message struct {
	Group string `json:"group"`
	Type  string `json:"type"`
	Data  any    `json:"data"`
}

func (m Message) String() string {
	return fmt.Sprintf("Message{Group: %s, Type: %s, Data: %v}", m.Group, m.Type, m.Data)
}

func (m Message) Validate() error {
	if m.Group == "" {
		return ErrGroupRequired
	}

	if m.Type == "" {
		return ErrTypeRequired
	}

	if m.Data == nil {
		return ErrDataRequired
	}

	return nil
}

// Publisher fans messages out to the channel layer.
type Publisher interface {
	Publish(ctx context.Context, messages ...Message) error
	Close() error
}

// PublishBestEffort validates and publishes the given messages, swallowing
// every failure with a log line. Callers invoke it post-commit so a channel
// layer outage never rolls back or errors a settled operation.
func PublishBestEffort(ctx context.Context, publisher Publisher, messages ...Message) {
	if publisher == nil || len(messages) == 0 {
		return
	}

	valid := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if err := msg.Validate(); err != nil {
			log.Ctx(ctx).Errorf("dropping invalid event %s: %v", msg, err)
			continue
		}
		valid = append(valid, msg)
	}
	if len(valid) == 0 {
		return
	}

	if err := publisher.Publish(ctx, valid...); err != nil {
		log.Ctx(ctx).Errorf("publishing %d event(s): %v", len(valid), err)
	}
}

// NoopPublisher logs and drops messages. It is used when no Redis URL is
// configured.
type NoopPublisher struct{}

func (p NoopPublisher) Publish(ctx context.Context, messages ...Message) error {
	log.Ctx(ctx).Debugf("NoopPublisher: discarding %d message(s): %+v", len(messages), messages)
	return nil
}

func (p NoopPublisher) Close() error {
	return nil
}

var _ Publisher = NoopPublisher{}
