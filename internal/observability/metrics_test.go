package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.RunFinished("done")
	m.RunFinished("done")
	m.RunFinished("failed")
	m.LayoutApplied("gen-3")
	m.WatchdogReload("expiry")
	m.Restarted()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LayoutsApplied.WithLabelValues("gen-3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WatchdogReloads.WithLabelValues("expiry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Restarts))

	// A second instance has its own registry and must not panic on registration.
	require.NotPanics(t, func() { NewMetrics() })
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.LayoutApplied("gen-4/5")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `protect_viewer_layouts_applied_total{generation="gen-4/5"} 1`)
}
