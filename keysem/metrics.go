/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package keysem

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics for Registry.
type MetricsCollector interface {
	// SetKeysAmount sets the current number of keys in the registry.
	SetKeysAmount(int)

	// IncHits increments the number of lookups that found an existing semaphore without taking the write lock.
	IncHits()

	// IncMisses increments the number of lookups that had to take the write lock.
	IncMisses()

	// IncCreations increments the number of created semaphores.
	IncCreations()

	// IncRemovals increments the number of removed semaphores.
	IncRemovals()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// If it is not empty, PrometheusMetrics.MustCurryWith must be called with the same labels before use.
	CurriedLabelNames []string
}

// PrometheusMetrics represents Prometheus metrics for Registry.
type PrometheusMetrics struct {
	KeysAmount     *prometheus.GaugeVec
	HitsTotal      *prometheus.CounterVec
	MissesTotal    *prometheus.CounterVec
	CreationsTotal *prometheus.CounterVec
	RemovalsTotal  *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	newCounter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: opts.ConstLabels,
		}, opts.CurriedLabelNames)
	}
	return &PrometheusMetrics{
		KeysAmount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "keysem_keys_amount",
			Help:        "Number of keys with a semaphore in the registry.",
			ConstLabels: opts.ConstLabels,
		}, opts.CurriedLabelNames),
		HitsTotal:      newCounter("keysem_lookup_hits_total", "Number of lookups that found an existing semaphore."),
		MissesTotal:    newCounter("keysem_lookup_misses_total", "Number of lookups that did not find a semaphore on the fast path."),
		CreationsTotal: newCounter("keysem_creations_total", "Number of created semaphores."),
		RemovalsTotal:  newCounter("keysem_removals_total", "Number of removed semaphores."),
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		KeysAmount:     pm.KeysAmount.MustCurryWith(labels),
		HitsTotal:      pm.HitsTotal.MustCurryWith(labels),
		MissesTotal:    pm.MissesTotal.MustCurryWith(labels),
		CreationsTotal: pm.CreationsTotal.MustCurryWith(labels),
		RemovalsTotal:  pm.RemovalsTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.KeysAmount, pm.HitsTotal, pm.MissesTotal, pm.CreationsTotal, pm.RemovalsTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.KeysAmount)
	prometheus.Unregister(pm.HitsTotal)
	prometheus.Unregister(pm.MissesTotal)
	prometheus.Unregister(pm.CreationsTotal)
	prometheus.Unregister(pm.RemovalsTotal)
}

// SetKeysAmount sets the current number of keys in the registry.
func (pm *PrometheusMetrics) SetKeysAmount(amount int) {
	pm.KeysAmount.With(nil).Set(float64(amount))
}

// IncHits increments the number of fast-path hits.
func (pm *PrometheusMetrics) IncHits() {
	pm.HitsTotal.With(nil).Inc()
}

// IncMisses increments the number of fast-path misses.
func (pm *PrometheusMetrics) IncMisses() {
	pm.MissesTotal.With(nil).Inc()
}

// IncCreations increments the number of created semaphores.
func (pm *PrometheusMetrics) IncCreations() {
	pm.CreationsTotal.With(nil).Inc()
}

// IncRemovals increments the number of removed semaphores.
func (pm *PrometheusMetrics) IncRemovals() {
	pm.RemovalsTotal.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetKeysAmount(int) {}
func (disabledMetrics) IncHits()          {}
func (disabledMetrics) IncMisses()        {}
func (disabledMetrics) IncCreations()     {}
func (disabledMetrics) IncRemovals()      {}
