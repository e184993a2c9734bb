package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveOperation("generate_plan", "ok")
	m.ObserveOperation("generate_plan", "ok")
	m.ObserveOperation("adjust_plan", "extraction_failure")
	m.ObserveFallback("process_reality_check")
	m.ObserveModelCall("openai", "ok", 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("generate_plan", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("adjust_plan", "extraction_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("process_reality_check")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCalls.WithLabelValues("openai", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.modelDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("generate_plan", "ok")
		m.ObserveFallback("process_reality_check")
		m.ObserveModelCall("openai", "ok", time.Second)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveOperation("generate_plan", "ok")

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `execoach_operations_total{op="generate_plan",outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
