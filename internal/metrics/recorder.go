// Package metrics records riding activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the simulation's metrics. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	ridesStarted   prometheus.Counter
	activeRides    prometheus.Gauge
	dismounts      *prometheus.CounterVec
	mountsSpawned  *prometheus.CounterVec
	spawnFailures  *prometheus.CounterVec
	parkingLookups *prometheus.CounterVec
	injections     *prometheus.CounterVec
	tickDuration   prometheus.Histogram
}

// NewRecorder registers the metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		ridesStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "ridesim_rides_started_total",
			Help: "Total number of rides that reached the riding state",
		}),
		activeRides: f.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_active_rides",
			Help: "Number of mounts currently carrying a rider",
		}),
		dismounts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ridesim_dismounts_total",
			Help: "Total number of ended rides by dismount reason",
		}, []string{"reason"}),
		mountsSpawned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ridesim_mounts_generated_total",
			Help: "Total number of mounts generated for spawned riders by pool",
		}, []string{"pool"}),
		spawnFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ridesim_mount_generation_failures_total",
			Help: "Total number of aborted mount generation batches by cause",
		}, []string{"cause"}),
		parkingLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ridesim_parking_searches_total",
			Help: "Total number of dismount point searches by outcome",
		}, []string{"outcome"}),
		injections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ridesim_mount_jobs_given_total",
			Help: "Total number of mount and dismount jobs handed out by method",
		}, []string{"job", "method"}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ridesim_tick_duration_seconds",
			Help:    "Wall time spent simulating one tick",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RideStarted counts a ride that reached the riding state.
func (r *Recorder) RideStarted() {
	if r == nil {
		return
	}
	r.ridesStarted.Inc()
	r.activeRides.Inc()
}

// RideEnded counts a ride ending for reason. wasRiding is false when the
// mount was still waiting for its rider.
func (r *Recorder) RideEnded(reason string, wasRiding bool) {
	if r == nil {
		return
	}
	r.dismounts.WithLabelValues(reason).Inc()
	if wasRiding {
		r.activeRides.Dec()
	}
}

// MountGenerated counts a mount spawned for a rider from a pool.
func (r *Recorder) MountGenerated(pool string) {
	if r == nil {
		return
	}
	r.mountsSpawned.WithLabelValues(pool).Inc()
}

// GenerationFailed counts an aborted generation batch.
func (r *Recorder) GenerationFailed(cause string) {
	if r == nil {
		return
	}
	r.spawnFailures.WithLabelValues(cause).Inc()
}

// ParkingSearch counts a dismount point search by outcome.
func (r *Recorder) ParkingSearch(outcome string) {
	if r == nil {
		return
	}
	r.parkingLookups.WithLabelValues(outcome).Inc()
}

// JobGiven counts a mount or dismount job handed out.
func (r *Recorder) JobGiven(job, method string) {
	if r == nil {
		return
	}
	r.injections.WithLabelValues(job, method).Inc()
}

// ObserveTick records how long one tick took.
func (r *Recorder) ObserveTick(d time.Duration) {
	if r == nil {
		return
	}
	r.tickDuration.Observe(d.Seconds())
}
