package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := New()
	m.JobFinished("completed", 20*time.Millisecond)
	m.JobFinished("failed", time.Millisecond)
	m.JobFinished("completed", time.Millisecond)
	m.TaskFinished(true, time.Millisecond)
	m.TaskFinished(false, time.Millisecond)
	m.SetHealthyNodes(3)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.jobs.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobs.WithLabelValues("failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.tasks.WithLabelValues("error")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.healthyNodes))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.JobFinished("completed", time.Second)
		m.TaskFinished(true, time.Second)
		m.SetHealthyNodes(1)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.TaskFinished(true, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "primesplit_worker_tasks_total")
}
