package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHelpersNoopBeforeRegister(t *testing.T) {
	if regOK.Load() {
		t.Skip("metrics already registered by another test")
	}
	// must not panic
	IncCacheHit("a")
	IncCacheMiss("a", MissAbsent)
	ObserveRefresh("a", true, 0.1)
	SetCachedProjects("a", 1)
	IncHeartbeat()
	IncHeartbeatRegression()
	SetIdleSeconds(1)
	IncContact(true)
}

func TestRegisterIdempotentAndCountersWork(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}

	IncCacheHit("octo")
	IncCacheMiss("octo", MissStale)
	ObserveRefresh("octo", true, 0.25)
	ObserveRefresh("octo", false, 1.5)
	SetCachedProjects("octo", 7)
	IncHeartbeat()
	IncHeartbeatRegression()
	SetIdleSeconds(3)
	IncContact(true)
	IncContact(false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	wantNames := map[string]bool{
		"folio_cache_hits_total":               false,
		"folio_cache_misses_total":             false,
		"folio_cache_refreshes_total":          false,
		"folio_cache_refresh_duration_seconds": false,
		"folio_cache_projects":                 false,
		"folio_heartbeat_signals_total":        false,
		"folio_heartbeat_regressions_total":    false,
		"folio_liveness_idle_seconds":          false,
		"folio_contact_messages_total":         false,
	}
	for _, mf := range mfs {
		n := mf.GetName()
		if _, ok := wantNames[n]; ok {
			wantNames[n] = true
			if len(mf.GetMetric()) == 0 {
				t.Fatalf("metric %s has no samples", n)
			}
		}
	}
	for n, ok := range wantNames {
		if !ok {
			t.Fatalf("expected to find metric %s", n)
		}
	}

	// refreshes_total carries both results
	for _, mf := range mfs {
		if mf.GetName() == "folio_cache_refreshes_total" && len(mf.GetMetric()) != 2 {
			t.Fatalf("expected ok and error series, got %d", len(mf.GetMetric()))
		}
	}
}

func TestHandlerServesDefaultRegistry(t *testing.T) {
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		t.Fatalf("register default: %v", err)
	}
	srv := httptest.NewServer(Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !strings.Contains(string(b), "go_goroutines") {
		t.Fatalf("expected default collectors in output")
	}
}
