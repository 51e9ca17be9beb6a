package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ridesim/internal/ride"
)

// Collector implements the engine, runner and publisher metric hooks on one
// registry.
type Collector struct {
	reg *prometheus.Registry

	Ticks          prometheus.Counter
	Events         *prometheus.CounterVec // kind label
	TrainsByStatus *prometheus.GaugeVec   // status label
	LayoutReloads  *prometheus.CounterVec // ride label

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	TickInterval    prometheus.Gauge // seconds
	PublishEvery    prometheus.Gauge // ticks
	RefreshInterval prometheus.Gauge // seconds
}

func NewCollector(tickInterval time.Duration, publishEvery uint64, refreshInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridesim_ticks_total",
			Help: "Total simulation ticks advanced.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ridesim_events_total",
			Help: "Ride events emitted by kind.",
		}, []string{"kind"}),
		TrainsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ridesim_trains",
			Help: "Trains currently in each ride-cycle status.",
		}, []string{"status"}),
		LayoutReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ridesim_layout_reloads_total",
			Help: "Track layouts swapped in after a revision change.",
		}, []string{"ride"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridesim_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridesim_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ridesim_tick_duration_seconds",
			Help:    "Duration of one engine tick.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ridesim_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_tick_interval_seconds",
			Help: "Wall time per tick.",
		}),
		PublishEvery: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_publish_every_ticks",
			Help: "Ticks between position snapshots.",
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_layout_refresh_interval_seconds",
			Help: "Layout revision polling interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.Ticks, c.Events, c.TrainsByStatus, c.LayoutReloads,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.TickDuration, c.PublishDuration,
		c.TickInterval, c.PublishEvery, c.RefreshInterval,
	)

	c.TickInterval.Set(tickInterval.Seconds())
	c.PublishEvery.Set(float64(publishEvery))
	c.RefreshInterval.Set(refreshInterval.Seconds())

	return c
}

// Event counts one engine event.
func (c *Collector) Event(kind string) { c.Events.WithLabelValues(kind).Inc() }

func (c *Collector) ObserveTick(d time.Duration) {
	c.Ticks.Inc()
	c.TickDuration.Observe(d.Seconds())
}

// SetStatusCounts replaces the per-status gauges; statuses with no trains
// disappear from the output.
func (c *Collector) SetStatusCounts(counts map[string]int) {
	c.TrainsByStatus.Reset()
	for s, n := range counts {
		c.TrainsByStatus.WithLabelValues(s).Set(float64(n))
	}
}

func (c *Collector) LayoutReloaded(id ride.ID) {
	c.LayoutReloads.WithLabelValues(strconv.Itoa(int(id))).Inc()
}

func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }
func (c *Collector) NATSSetConnected(b bool) {
	if b {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}
