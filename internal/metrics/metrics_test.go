package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Exposition(t *testing.T) {
	m := New()
	m.Predictions.WithLabelValues("fruit").Inc()
	m.NutritionLookups.WithLabelValues("unavailable").Add(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Predictions.WithLabelValues("fruit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.NutritionLookups.WithLabelValues("unavailable")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `predictions_total{category="fruit"} 1`)
}
