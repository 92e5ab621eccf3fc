package kafka

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"
)

// EventHandler receives one decoded CloudEvent per Kafka message.
type EventHandler interface {
	HandleEvent(ctx context.Context, e event.Event) error
}

type HandlerFunc func(ctx context.Context, e event.Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, e event.Event) error {
	return f(ctx, e)
}
