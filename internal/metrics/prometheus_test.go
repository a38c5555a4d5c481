package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/model"
)

func TestCollector_ObserveClassification(t *testing.T) {
	c := NewCollector(nil)

	c.ObserveClassification(model.Result{IsClassified: true, CategoryID: "cat-1"})
	c.ObserveClassification(model.Result{IsClassified: true, CategoryID: "cat-2"})
	c.ObserveClassification(model.Unclassified(model.ReasonNoMatchingRule))

	assert.InDelta(t, 2, testutil.ToFloat64(c.classifications.WithLabelValues("classified", "")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.classifications.WithLabelValues("unclassified", model.ReasonNoMatchingRule)), 0)
}

func TestCollector_ObserveCacheLookup(t *testing.T) {
	c := NewCollector(nil)

	c.ObserveCacheLookup(true)
	c.ObserveCacheLookup(true)
	c.ObserveCacheLookup(false)

	assert.InDelta(t, 2, testutil.ToFloat64(c.cacheLookups.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.cacheLookups.WithLabelValues("miss")), 0)
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveBatch(150*time.Millisecond, 100)
	c.ObserveCacheLookup(false)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "tally_batch_duration_seconds_count 1"))
	assert.True(t, strings.Contains(body, "tally_batch_size_sum 100"))
	assert.True(t, strings.Contains(body, `tally_rule_cache_lookups_total{outcome="miss"} 1`))
}
