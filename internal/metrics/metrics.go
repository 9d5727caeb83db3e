package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Collector struct {
	reg *prometheus.Registry

	TrainsTracked   prometheus.Gauge
	DelayedTrains   prometheus.Gauge
	CancelledTrains prometheus.Gauge

	TicksTotal        prometheus.Counter
	DerivationSkips   prometheus.Counter
	OverridesApplied  prometheus.Counter
	OverridesRejected prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	StepMinutes  prometheus.Gauge
	TickInterval prometheus.Gauge // seconds
}

func NewCollector(stepMinutes int, tickInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TrainsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_trains_tracked",
			Help: "Number of trains in the latest published feed.",
		}),
		DelayedTrains: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_trains_delayed",
			Help: "Number of trains currently reporting Delayed.",
		}),
		CancelledTrains: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_trains_cancelled",
			Help: "Number of trains currently reporting Cancelled.",
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_ticks_total",
			Help: "Total simulation ticks executed.",
		}),
		DerivationSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_derivation_skips_total",
			Help: "Trains skipped from a tick due to malformed schedules.",
		}),
		OverridesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_overrides_applied_total",
			Help: "Operator status overrides accepted.",
		}),
		OverridesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_overrides_rejected_total",
			Help: "Operator status overrides rejected (unknown train).",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_tick_duration_seconds",
			Help:    "Duration of full-feed recomputation ticks.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		StepMinutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_step_minutes",
			Help: "Simulated minutes advanced per tick.",
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_tick_interval_seconds",
			Help: "Wall-clock tick interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.TrainsTracked, c.DelayedTrains, c.CancelledTrains,
		c.TicksTotal, c.DerivationSkips, c.OverridesApplied, c.OverridesRejected,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.TickDuration, c.PublishDuration,
		c.StepMinutes, c.TickInterval,
	)

	c.StepMinutes.Set(float64(stepMinutes))
	c.TickInterval.Set(tickInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}
