package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordsFetchMetrics(t *testing.T) {
	c := NewCollector()

	c.RecordAttempt("drones")
	c.RecordAttempt("drones")
	c.RecordRetry("drones")
	c.RecordFetch("drones", OutcomeSuccess, 150*time.Millisecond)
	c.RecordSkipped("drones", 2)
	c.RecordSkipped("drones", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.fetchAttempts.WithLabelValues("drones")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchRetries.WithLabelValues("drones")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchResults.WithLabelValues("drones", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.recordsSkipped.WithLabelValues("drones")))
}

func TestCollector_RecordRefresh(t *testing.T) {
	c := NewCollector()
	c.RecordRefresh(nil)
	c.RecordRefresh(errors.New("boom"))
	c.RecordRefresh(errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.refreshRuns.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.refreshRuns.WithLabelValues("error")))
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordAttempt("x")
		c.RecordRetry("x")
		c.RecordFetch("x", OutcomeSuccess, time.Second)
		c.RecordSkipped("x", 1)
		c.RecordRefresh(nil)
	})
	assert.Nil(t, c.Registry())
}

func TestCollector_HandlerServesMetrics(t *testing.T) {
	c := NewCollector()
	c.RecordAttempt("dronetypes")

	srv := httptest.NewServer(c.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), `dronewatch_fetch_attempts_total{endpoint="dronetypes"} 1`))
}
