package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mikey/phishgard/internal/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	r := NewRecorder()

	r.AnalysisCompleted(core.VerdictPhishing, "pipeline", 200*time.Millisecond)
	r.AnalysisCompleted(core.VerdictPhishing, "pipeline", time.Second)
	r.AnalysisCompleted(core.VerdictLegitime, "cache", time.Millisecond)
	r.VetoApplied("domain_age")
	r.CacheLookup(true)
	r.CacheLookup(false)
	r.CacheLookup(false)
	r.LookupFailed("abuseipdb")

	if got := testutil.ToFloat64(r.analyses.WithLabelValues("Phishing", "pipeline")); got != 2 {
		t.Errorf("expected 2 phishing analyses, got %v", got)
	}
	if got := testutil.ToFloat64(r.vetoes.WithLabelValues("domain_age")); got != 1 {
		t.Errorf("expected 1 veto, got %v", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")); got != 2 {
		t.Errorf("expected 2 misses, got %v", got)
	}
	if got := testutil.ToFloat64(r.osintErrors.WithLabelValues("abuseipdb")); got != 1 {
		t.Errorf("expected 1 osint error, got %v", got)
	}
	if got := testutil.CollectAndCount(r.duration); got != 2 {
		t.Errorf("expected 2 duration series, got %d", got)
	}
}

func TestRecorderHandler(t *testing.T) {
	r := NewRecorder()
	r.CacheLookup(true)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `phishgard_cache_lookups_total{result="hit"} 1`) {
		t.Errorf("expected cache counter in output:\n%s", rec.Body.String())
	}
}
