package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"storage-alert/pkg/observability"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer bridges CloudEvents published on a Kafka topic to an
// EventHandler. Every fetched message counts as done once the handler has
// seen it (even if it failed or panicked), or once it is found malformed;
// nothing is retried. Commits advance per partition over done messages only.
type Consumer struct {
	reader  messageReader
	pool    *Pool
	handler EventHandler
	offsets *offsetTracker
	log     zerolog.Logger
}

func NewConsumer(broker, topic, groupID string, pool *Pool, handler EventHandler, log zerolog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{broker},
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	})

	return newConsumer(r, pool, handler, log.With().Str("topic", topic).Logger())
}

func newConsumer(r messageReader, pool *Pool, handler EventHandler, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		pool:    pool,
		handler: handler,
		offsets: newOffsetTracker(),
		log:     log,
	}
}

// Run fetches until ctx is done (returning nil), the reader fails, or the
// pool is shut down. A message fetched as ctx ends is still handed to the pool.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		observability.BridgeReceived.Inc()
		c.offsets.Track(m)

		msg := m
		if err := c.pool.Submit(context.WithoutCancel(ctx), func(ctx context.Context) error {
			return c.deliver(ctx, msg)
		}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("submit partition %d offset %d: %w", m.Partition, m.Offset, err)
		}
		observability.QueueLength.Set(float64(c.pool.QueueLen()))
	}
}

func (c *Consumer) deliver(ctx context.Context, m kafka.Message) error {
	e, err := DecodeMessage(m)
	if err != nil {
		observability.BridgeMalformed.Inc()
		c.log.Warn().Err(err).
			Int("partition", m.Partition).
			Int64("offset", m.Offset).
			Msg("skipping malformed message")
		return c.offsets.Complete(ctx, m, c.commit)
	}

	start := time.Now()
	err = c.handle(ctx, e)
	observability.HandleLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		observability.BridgeFailed.Inc()
		c.log.Error().Err(err).Str("event_id", e.ID()).Msg("function returned an error")
	} else {
		observability.BridgeDelivered.Inc()
	}
	return c.offsets.Complete(ctx, m, c.commit)
}

func (c *Consumer) handle(ctx context.Context, e event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler.HandleEvent(ctx, e)
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		return fmt.Errorf("commit partition %d offset %d: %w", m.Partition, m.Offset, err)
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
