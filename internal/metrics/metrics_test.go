package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBuild(t *testing.T) {
	m := New(nil)
	m.ObserveBuild(ResultOK, 0.5, 12, 15)
	m.ObserveBuild(ResultCanceled, 0.1, 99, 99)

	if got := testutil.ToFloat64(m.BuildsTotal.WithLabelValues(ResultOK)); got != 1 {
		t.Errorf("ok builds = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BuildsTotal.WithLabelValues(ResultCanceled)); got != 1 {
		t.Errorf("canceled builds = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GraphNodes); got != 12 {
		t.Errorf("graph nodes = %v, want 12 (failed builds must not overwrite)", got)
	}
	if got := testutil.ToFloat64(m.GraphEdges); got != 15 {
		t.Errorf("graph edges = %v, want 15", got)
	}
}

func TestCacheCounters(t *testing.T) {
	m := New(nil)
	m.CacheRequest("di", CacheHit)
	m.CacheRequest("di", CacheHit)
	m.CacheRequest("di", CacheMiss)
	m.CacheInvalidated()

	if got := testutil.ToFloat64(m.CacheRequests.WithLabelValues("di", CacheHit)); got != 2 {
		t.Errorf("di hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheInvalidations); got != 1 {
		t.Errorf("invalidations = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveBuild(ResultOK, 1, 1, 1)
	m.CacheRequest("usage", CacheMiss)
	m.CacheInvalidated()
}

func TestHandlerExposesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveBuild(ResultOK, 0.01, 3, 2)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, want := range []string{"calleagle_builds_total", "calleagle_graph_nodes 3"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
