/*
Package telemetry exposes Prometheus metrics for the case engine.

PURPOSE:
  Counts what the append-only subsystems do: audit entries written, cash
  movements posted, chain verifications and failed operations. Values are
  observational only; nothing in the engine reads them back.

USAGE:
  m := telemetry.New(prometheus.NewRegistry())
  svc := lostitem.New(store, lostitem.WithMetrics(m))
  router.Handle("/metrics", m.Handler())

  A nil *Metrics is valid and records nothing, so tests and the CLI can
  run without a registry.
*/
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "losttrack"

type Metrics struct {
	gatherer prometheus.Gatherer

	auditEntries  *prometheus.CounterVec
	ledgerEntries *prometheus.CounterVec
	ledgerCents   *prometheus.CounterVec
	chainChecks   *prometheus.CounterVec
	chainLength   prometheus.Gauge
	failures      *prometheus.CounterVec
}

// New registers all collectors on reg. reg must also be a Gatherer for
// Handler to serve it (prometheus.NewRegistry satisfies both).
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		// auditEntries counts appended audit entries.
		// Labels: type (ITEM_COMMITTED, FINDER_REWARD_PAID, ...)
		auditEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Audit entries appended by event type",
		}, []string{"type"}),

		// ledgerEntries counts cash ledger postings.
		// Labels: type (IN, OUT)
		ledgerEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Cash ledger entries posted by direction",
		}, []string{"type"}),

		ledgerCents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "posted_cents_total",
			Help:      "Sum of posted amounts in cents by direction",
		}, []string{"type"}),

		// chainChecks counts VerifyChain runs.
		// Labels: result (ok, broken)
		chainChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "chain_verifications_total",
			Help:      "Ledger chain verifications by result",
		}, []string{"result"}),

		chainLength: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "chain_length",
			Help:      "Number of ledger entries seen by the last verification",
		}),

		// failures counts operations that returned an error.
		// Labels: op (commit, payFinderReward, ...)
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "operation_failures_total",
			Help:      "Service operations that returned an error",
		}, []string{"op"}),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// =============================================================================
// RECORDING
// =============================================================================

func (m *Metrics) AuditAppended(eventType string) {
	if m == nil {
		return
	}
	m.auditEntries.WithLabelValues(eventType).Inc()
}

func (m *Metrics) LedgerPosted(entryType string, cents int64) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(entryType).Inc()
	m.ledgerCents.WithLabelValues(entryType).Add(float64(cents))
}

func (m *Metrics) ChainVerified(ok bool, length int) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "broken"
	}
	m.chainChecks.WithLabelValues(result).Inc()
	m.chainLength.Set(float64(length))
}

func (m *Metrics) OperationFailed(op string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus text format. Without a
// gatherer (or for a nil receiver) the default registry is served.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
