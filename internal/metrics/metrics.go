// Package metrics exposes Prometheus instrumentation for seeding runs and
// for the state of the market store.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const namespace = "market"

// SeedMetrics tracks one seeding process.
type SeedMetrics struct {
	registry     *prometheus.Registry
	Runs         *prometheus.CounterVec
	RowsInserted *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	LastSuccess  prometheus.Gauge
}

// NewSeedMetrics registers seeding metrics on a private registry.
func NewSeedMetrics() *SeedMetrics {
	m := &SeedMetrics{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seed",
			Name:      "runs_total",
			Help:      "Seeding runs by outcome.",
		}, []string{"status"}),
		RowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seed",
			Name:      "rows_inserted_total",
			Help:      "Rows committed by seeding runs, by table.",
		}, []string{"table"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "seed",
			Name:      "step_duration_seconds",
			Help:      "Duration of each seeding step.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"step"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "seed",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful seeding run.",
		}),
	}
	m.registry.MustRegister(m.Runs, m.RowsInserted, m.StepDuration, m.LastSuccess)
	return m
}

// ObserveStep records the time elapsed since start for step.
func (m *SeedMetrics) ObserveStep(step string, start time.Time) {
	m.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// RunFinished counts a run and, on success, stamps LastSuccess.
func (m *SeedMetrics) RunFinished(err error) {
	if err != nil {
		m.Runs.WithLabelValues("error").Inc()
		return
	}
	m.Runs.WithLabelValues("success").Inc()
	m.LastSuccess.SetToCurrentTime()
}

// Push sends the seeding metrics to a Pushgateway under job.
func (m *SeedMetrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// StatsFunc reports current row counts of the store.
type StatsFunc func(ctx context.Context) (users, items, owned int64, err error)

// StoreCollector reads row counts on every scrape.
type StoreCollector struct {
	stats   StatsFunc
	timeout time.Duration
	log     *zap.Logger

	up    *prometheus.Desc
	users *prometheus.Desc
	items *prometheus.Desc
	owned *prometheus.Desc
}

// NewStoreCollector creates a collector backed by stats.
func NewStoreCollector(stats StatsFunc, log *zap.Logger) *StoreCollector {
	return &StoreCollector{
		stats:   stats,
		timeout: 2 * time.Second,
		log:     log,
		up:      prometheus.NewDesc(namespace+"_store_up", "Whether the last store query succeeded.", nil, nil),
		users:   prometheus.NewDesc(namespace+"_users", "Users in the store.", nil, nil),
		items:   prometheus.NewDesc(namespace+"_items", "Items in the store.", nil, nil),
		owned:   prometheus.NewDesc(namespace+"_owned_items", "Items with an owner.", nil, nil),
	}
}

func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.users
	ch <- c.items
	ch <- c.owned
}

func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	users, items, owned, err := c.stats(ctx)
	if err != nil {
		c.log.Error("Failed to collect store stats", zap.Error(err))
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.users, prometheus.GaugeValue, float64(users))
	ch <- prometheus.MustNewConstMetric(c.items, prometheus.GaugeValue, float64(items))
	ch <- prometheus.MustNewConstMetric(c.owned, prometheus.GaugeValue, float64(owned))
}

// NewServeRegistry builds the registry scraped by the serve command.
func NewServeRegistry(store *StoreCollector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		store,
	)
	return reg
}
