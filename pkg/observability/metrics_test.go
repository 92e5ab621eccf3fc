package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))

	BridgeReceived.Inc()
	n, err := testutil.GatherAndCount(reg,
		"storage_alert_bridge_received_total",
		"storage_alert_bridge_delivered_total",
		"storage_alert_bridge_malformed_total",
		"storage_alert_bridge_failed_total",
		"storage_alert_bridge_handle_seconds",
		"storage_alert_bridge_queue_length",
	)
	require.NoError(t, err)
	require.Equal(t, 6, n)
}
