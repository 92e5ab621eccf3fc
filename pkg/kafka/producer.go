package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var ErrUnknownTopic = errors.New("unknown kafka topic")

// MultiTopicProducer keeps one writer per topic it was created with.
type MultiTopicProducer struct {
	writers map[string]*kafka.Writer
	log     zerolog.Logger
}

func NewMultiTopicProducer(broker string, log zerolog.Logger, topics ...string) *MultiTopicProducer {
	writers := make(map[string]*kafka.Writer)
	for _, topic := range topics {
		writers[topic] = &kafka.Writer{
			Addr:     kafka.TCP(broker),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		}
	}
	return &MultiTopicProducer{writers: writers, log: log}
}

func (p *MultiTopicProducer) Publish(ctx context.Context, topic string, msgs ...kafka.Message) error {
	w, ok := p.writers[topic]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	return w.WriteMessages(ctx, msgs...)
}

// PublishEvent writes e to topic in structured mode.
func (p *MultiTopicProducer) PublishEvent(ctx context.Context, topic string, e event.Event) error {
	msg, err := EncodeMessage(e)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, msg)
}

func (p *MultiTopicProducer) Close() error {
	var errs []error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			p.log.Error().Err(err).Str("topic", topic).Msg("failed to close kafka writer")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
