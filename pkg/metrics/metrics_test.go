package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flix-app/flix-cache/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
	if Gatherer != prometheus.DefaultGatherer {
		t.Error("Gatherer should be the default Prometheus gatherer")
	}
}

func TestHandler_ExposesPackageMetrics(t *testing.T) {
	cache.CacheHits.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "flix_response_cache_hits_total") {
		t.Error("metrics output is missing flix_response_cache_hits_total")
	}
}
