package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Miss reasons recorded by IncCacheMiss.
const (
	MissAbsent  = "absent"
	MissStale   = "stale"
	MissCorrupt = "corrupt"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Project list requests answered from a fresh snapshot.",
		}, []string{"account"},
	)
	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Project list requests that required a refresh, by reason.",
		}, []string{"account", "reason"},
	)
	refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "cache",
			Name:      "refreshes_total",
			Help:      "Upstream fetches, by result (ok or error).",
		}, []string{"account", "result"},
	)
	refreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "cache",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of upstream fetch plus categorization.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"account"},
	)
	cachedProjects = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "folio",
			Subsystem: "cache",
			Name:      "projects",
			Help:      "Records in the current snapshot.",
		}, []string{"account"},
	)
	heartbeats = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "heartbeat",
			Name:      "signals_total",
			Help:      "Heartbeat signals received.",
		},
	)
	heartbeatRegressions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "heartbeat",
			Name:      "regressions_total",
			Help:      "Heartbeats older than the current last-seen time (ignored).",
		},
	)
	idleSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "folio",
			Subsystem: "liveness",
			Name:      "idle_seconds",
			Help:      "Seconds since the last heartbeat, as of the last poll.",
		},
	)
	contactMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "contact",
			Name:      "messages_total",
			Help:      "Contact form submissions, by result (accepted or rejected).",
		}, []string{"result"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{cacheHits, cacheMisses, refreshes, refreshDuration, cachedProjects, heartbeats, heartbeatRegressions, idleSeconds, contactMessages}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncCacheHit(account string) {
	if regOK.Load() {
		cacheHits.WithLabelValues(account).Inc()
	}
}

func IncCacheMiss(account, reason string) {
	if regOK.Load() {
		cacheMisses.WithLabelValues(account, reason).Inc()
	}
}

func ObserveRefresh(account string, ok bool, seconds float64) {
	if !regOK.Load() {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	refreshes.WithLabelValues(account, result).Inc()
	refreshDuration.WithLabelValues(account).Observe(seconds)
}

func SetCachedProjects(account string, n int) {
	if regOK.Load() {
		cachedProjects.WithLabelValues(account).Set(float64(n))
	}
}

func IncHeartbeat() {
	if regOK.Load() {
		heartbeats.Inc()
	}
}

func IncHeartbeatRegression() {
	if regOK.Load() {
		heartbeatRegressions.Inc()
	}
}

func SetIdleSeconds(s float64) {
	if regOK.Load() {
		idleSeconds.Set(s)
	}
}

func IncContact(accepted bool) {
	if !regOK.Load() {
		return
	}
	if accepted {
		contactMessages.WithLabelValues("accepted").Inc()
		return
	}
	contactMessages.WithLabelValues("rejected").Inc()
}
