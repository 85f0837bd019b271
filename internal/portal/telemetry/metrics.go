// Package telemetry holds the portal's Prometheus metrics.
//
// All metrics are registered against the default registry through promauto
// and exposed by the HTTP server at GET /metrics.
//
// HTTP metrics are labelled with the ServeMux route pattern (for example
// "DELETE /v1/devices/{id}") rather than the raw URL so that device and
// invite identifiers do not blow up label cardinality.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wgportal"

// HTTP metrics, recorded by HTTPMetrics.
//
// Example PromQL:
//   - Error rate:   sum(rate(wgportal_http_requests_total{status=~"5.."}[5m])) / sum(rate(wgportal_http_requests_total[5m]))
//   - p99 latency:  histogram_quantile(0.99, sum by (route, le) (rate(wgportal_http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed, by method, route pattern and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request latencies, by method and route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// Provisioning metrics.
//
// ProvisioningTotal counts device operations by operation (add, remove) and
// outcome (ok, error). KeygenDegradedTotal counts key pairs issued from plain
// random bytes; any increase means clients received unusable configs and is
// worth an alert:
//
//	increase(wgportal_keygen_degraded_total[1h]) > 0
var (
	ProvisioningTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_total",
			Help:      "Device provisioning operations, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	KeygenDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keygen_degraded_total",
			Help:      "Key pairs generated without a working key primitive.",
		},
	)
)

// Interface sync metrics.
//
// SyncFailuresTotal counts failed attach and detach calls against the
// WireGuard interface, by op (attach, detach). PendingPeers is the number of
// peers whose attach has not been confirmed, sampled by the reconciler.
var (
	SyncFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_failures_total",
			Help:      "Failed WireGuard interface sync calls, by op.",
		},
		[]string{"op"},
	)

	PendingPeers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_peers",
			Help:      "Active peers not yet confirmed on the WireGuard interface.",
		},
	)
)

// InviteConsumptionsTotal counts registration attempts against an invite,
// labelled by the resulting invite status (valid, not_found, disabled,
// expired, exhausted).
var InviteConsumptionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invite_consumptions_total",
		Help:      "Invite consumption attempts, by result.",
	},
	[]string{"result"},
)

// DBOpenConnections tracks sql.DB pool usage, sampled by StartDBStatsCollector.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_open_connections",
		Help:      "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector samples db pool statistics every interval until ctx
// is cancelled.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.PingContext(ctx); err != nil {
					if ctx.Err() == nil {
						slog.Warn("db stats collector: database unreachable", "error", err)
					}
					continue
				}
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	}()
}
