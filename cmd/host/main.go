// Command host serves the fileStorageAlert function locally, standing in for
// the managed runtime: CloudEvents over HTTP through the Functions Framework,
// and optionally CloudEvents from a Kafka topic.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/prometheus/client_golang/prometheus"

	storagealert "storage-alert"
	"storage-alert/internal/config"
	"storage-alert/pkg/kafka"
	"storage-alert/pkg/logging"
	"storage-alert/pkg/observability"
	"storage-alert/pkg/pprof"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal(err.Error())
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logging.Setup(os.Stdout, cfg.Log.Format, cfg.Log.Level); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	log := logging.Logger()

	// funcframework picks the function to serve from FUNCTION_TARGET.
	if err := os.Setenv("FUNCTION_TARGET", cfg.HTTP.Target); err != nil {
		return fmt.Errorf("set FUNCTION_TARGET: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var servers []*http.Server
	if cfg.Pprof.Port != "" {
		servers = append(servers, pprof.Start(cfg.Pprof.Port, log))
	}
	if cfg.Metrics.Port != "" {
		if err := observability.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		servers = append(servers, observability.ServeMetrics(cfg.Metrics.Port, prometheus.DefaultGatherer, log))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, s := range servers {
			_ = s.Shutdown(shutdownCtx)
		}
	}()

	errc := make(chan error, 2)

	if cfg.BridgeEnabled() {
		bridgeCtx, stopBridge := context.WithCancel(ctx)
		// In-flight deliveries finish and commit after a signal.
		pool := kafka.NewPool(context.WithoutCancel(ctx), cfg.Kafka.Workers, cfg.Kafka.QueueSize, log)
		consumer := kafka.NewConsumer(
			cfg.Kafka.Broker,
			cfg.Kafka.Topic,
			cfg.Kafka.GroupID,
			pool,
			kafka.HandlerFunc(storagealert.FileStorageAlert),
			log,
		)
		runDone := make(chan struct{})
		defer func() {
			logging.Info("shutting down kafka bridge...")
			stopBridge()
			<-runDone
			pool.Shutdown()
			if err := consumer.Close(); err != nil {
				logging.Error(fmt.Sprintf("close kafka reader: %v", err))
			}
		}()

		go func() {
			defer close(runDone)
			log.Info().
				Str("broker", cfg.Kafka.Broker).
				Str("topic", cfg.Kafka.Topic).
				Int("workers", cfg.Kafka.Workers).
				Msg("kafka bridge started")
			if err := consumer.Run(bridgeCtx); err != nil {
				errc <- fmt.Errorf("kafka bridge: %w", err)
			}
		}()
	}

	go func() {
		log.Info().Str("port", cfg.HTTP.Port).Str("target", cfg.HTTP.Target).Msg("function host listening")
		if err := funcframework.Start(cfg.HTTP.Port); err != nil {
			errc <- fmt.Errorf("funcframework: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logging.Info("signal received, stopping")
		return nil
	case err := <-errc:
		return err
	}
}
