package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storage-alert/pkg/gcsevent"
	"storage-alert/pkg/kafka"
	"storage-alert/pkg/logging"
)

type sender interface {
	Send(ctx context.Context, e event.Event) error
	Close() error
}

func main() {
	mode := flag.String("mode", "http", "Delivery mode: http or kafka")
	target := flag.String("target", "http://localhost:8080", "Function URL (http mode)")
	broker := flag.String("broker", "localhost:9092", "Kafka broker address (kafka mode)")
	topic := flag.String("topic", "storage.events", "Kafka topic to publish to (kafka mode)")
	bucket := flag.String("bucket", "loadgen-bucket", "Bucket named in generated events")
	rps := flag.Int("rps", 100, "Events per second")
	duration := flag.Int("duration", 10, "Duration in seconds")
	flag.Parse()

	if err := logging.Setup(os.Stderr, logging.FormatConsole, "info"); err != nil {
		logging.Fatal(err.Error())
	}
	log := logging.Logger()

	if *rps < 1 || *duration < 1 {
		logging.Fatal("rps and duration must be positive")
	}

	s, err := newSender(*mode, *target, *broker, *topic, log)
	if err != nil {
		logging.Fatal(fmt.Sprintf("create sender: %v", err))
	}
	defer s.Close()

	log.Info().
		Str("mode", *mode).
		Int("rps", *rps).
		Int("duration", *duration).
		Msg("starting loadgen")

	sent, failed := run(context.Background(), s, *bucket, *rps, time.Duration(*duration)*time.Second, log)

	log.Info().Int64("sent", sent).Int64("failed", failed).Msg("load generation complete")
}

func run(ctx context.Context, s sender, bucket string, rps int, d time.Duration, log zerolog.Logger) (sent, failed int64) {
	ticker := time.NewTicker(time.Second / time.Duration(rps))
	defer ticker.Stop()

	var (
		wg       sync.WaitGroup
		okCount  atomic.Int64
		errCount atomic.Int64
	)

	end := time.Now().Add(d)
	for i := 0; time.Now().Before(end); i++ {
		<-ticker.C

		e, err := gcsevent.NewOfType(gcsevent.Types[i%len(gcsevent.Types)], gcsevent.Object{
			Bucket:      bucket,
			Name:        fmt.Sprintf("loadgen/%s.bin", uuid.NewString()),
			ContentType: "application/octet-stream",
			Size:        int64(1024 + i%4096),
		})
		if err != nil {
			errCount.Add(1)
			log.Error().Err(err).Msg("failed to build event")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Send(ctx, e); err != nil {
				errCount.Add(1)
				log.Error().Err(err).Str("event_id", e.ID()).Msg("failed to send event")
				return
			}
			okCount.Add(1)
		}()
	}
	wg.Wait()

	return okCount.Load(), errCount.Load()
}

func newSender(mode, target, broker, topic string, log zerolog.Logger) (sender, error) {
	switch mode {
	case "http":
		c, err := cloudevents.NewClientHTTP()
		if err != nil {
			return nil, err
		}
		return &httpSender{client: c, target: target}, nil
	case "kafka":
		return &kafkaSender{producer: kafka.NewMultiTopicProducer(broker, log, topic), topic: topic}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

type httpSender struct {
	client cloudevents.Client
	target string
}

func (s *httpSender) Send(ctx context.Context, e event.Event) error {
	result := s.client.Send(cloudevents.ContextWithTarget(ctx, s.target), e)
	if !cloudevents.IsACK(result) {
		return result
	}
	return nil
}

func (s *httpSender) Close() error {
	return nil
}

type kafkaSender struct {
	producer *kafka.MultiTopicProducer
	topic    string
}

func (s *kafkaSender) Send(ctx context.Context, e event.Event) error {
	return s.producer.PublishEvent(ctx, s.topic, e)
}

func (s *kafkaSender) Close() error {
	return s.producer.Close()
}
