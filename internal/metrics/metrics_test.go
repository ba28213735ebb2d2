package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ImplementsGatherer(t *testing.T) {
	var _ prometheus.Gatherer = NewRegistry()
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.RecordRequest("GET", "/", 200, 0.1)
		r.InFlightInc()
		r.InFlightDec()
		r.RecordPollCycle("ok", 0.2)
		r.RecordFetchFailure("market")
		r.RecordNewSignal("options", "buy")
		r.SetHeldSignals(1, 2)
		r.RecordExecution("manual", "success")
		r.RecordNotification("webhook", "success")
		r.RecordRefreshDropped()
		r.SetMarketOpen(true)
	})
}

func TestRegistry_RecordRequest_StatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{100, "1xx"},
		{201, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			reg := NewRegistry()
			reg.RecordRequest("GET", "/api/v1/signals", tt.status, 0.01)
			assert.Equal(t, 1.0, testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/api/v1/signals", tt.expected)))
		})
	}
}

func TestRegistry_PollMetrics(t *testing.T) {
	reg := NewRegistry()

	reg.RecordPollCycle("ok", 0.3)
	reg.RecordPollCycle("error", 0.1)
	reg.RecordPollCycle("ok", 0.2)
	reg.RecordFetchFailure("market")
	reg.RecordNewSignal("equity", "sell")
	reg.SetHeldSignals(3, 1)
	reg.RecordRefreshDropped()
	reg.SetMarketOpen(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.pollCycles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.pollCycles.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.fetchFailures.WithLabelValues("market")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.newSignals.WithLabelValues("equity", "sell")))
	assert.Equal(t, 3.0, testutil.ToFloat64(reg.heldSignals.WithLabelValues("non_executed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.heldSignals.WithLabelValues("executed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.refreshDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.marketOpenGauge))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["signaldesk_poll_cycles_total"])
	assert.True(t, names["signaldesk_poll_duration_seconds"])
}

func TestRegistry_ExecutionsAndNotifications(t *testing.T) {
	reg := NewRegistry()
	reg.RecordExecution("auto", "success")
	reg.RecordExecution("manual", "error")
	reg.RecordNotification("telegram", "error")

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.executions.WithLabelValues("auto", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.executions.WithLabelValues("manual", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.notifications.WithLabelValues("telegram", "error")))
}
