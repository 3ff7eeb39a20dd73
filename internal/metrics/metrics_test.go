package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewRegistry registers every metric against the global Prometheus
// registry via MustRegister, which panics on a second registration of
// the same metric name. Keep this to a single test function so the
// whole suite can run in one process without colliding with itself.
func TestNewRegistryExposesAllMetrics(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)

	r.MessagesIngested.Inc()
	r.ClustersActive.Set(3)
	r.MessagesDropped.WithLabelValues("duplicate").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "signal_engine_messages_ingested_total")
	assert.Contains(t, body, "signal_engine_clusters_active")
}
