package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	BridgeReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storage_alert_bridge_received_total",
		Help: "Kafka messages fetched by the event bridge",
	})

	BridgeDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storage_alert_bridge_delivered_total",
		Help: "Events handed to the function without error",
	})

	BridgeMalformed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storage_alert_bridge_malformed_total",
		Help: "Messages skipped because they held no valid CloudEvent",
	})

	BridgeFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storage_alert_bridge_failed_total",
		Help: "Events the function returned an error for",
	})

	HandleLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storage_alert_bridge_handle_seconds",
		Help:    "Time spent in the function per bridged event",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	QueueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storage_alert_bridge_queue_length",
		Help: "Bridged events queued or running in the worker pool",
	})
)

// Register adds the bridge collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		BridgeReceived, BridgeDelivered, BridgeMalformed, BridgeFailed, HandleLatency, QueueLength,
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ServeMetrics exposes /metrics for gatherer on port in the background and
// returns the server so callers can shut it down.
func ServeMetrics(port string, gatherer prometheus.Gatherer, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("metrics listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	return server
}
