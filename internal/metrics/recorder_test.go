package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value sums every sample of a gathered metric family whose labels include
// the given pairs.
func value(t *testing.T, r *Recorder, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for k, v := range labels {
				found := false
				for _, lp := range m.GetLabel() {
					if lp.GetName() == k && lp.GetValue() == v {
						found = true
					}
				}
				match = match && found
			}
			if !match {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func TestRideCounters(t *testing.T) {
	r := NewRecorder()
	r.RideStarted()
	r.RideStarted()
	r.RideEnded("BadState", true)
	r.RideEnded("Interrupted", false)

	assert.Equal(t, 2.0, value(t, r, "ridesim_rides_started_total", nil))
	assert.Equal(t, 1.0, value(t, r, "ridesim_active_rides", nil))
	assert.Equal(t, 1.0, value(t, r, "ridesim_dismounts_total", map[string]string{"reason": "BadState"}))
	assert.Equal(t, 2.0, value(t, r, "ridesim_dismounts_total", nil))
}

func TestGenerationCounters(t *testing.T) {
	r := NewRecorder()
	r.MountGenerated("domestic")
	r.MountGenerated("domestic")
	r.MountGenerated("local")
	r.GenerationFailed("no_candidate")
	r.ParkingSearch("drop_off")
	r.JobGiven("mount", "inject")
	r.ObserveTick(time.Millisecond)

	assert.Equal(t, 2.0, value(t, r, "ridesim_mounts_generated_total", map[string]string{"pool": "domestic"}))
	assert.Equal(t, 1.0, value(t, r, "ridesim_mount_generation_failures_total", map[string]string{"cause": "no_candidate"}))
	assert.Equal(t, 1.0, value(t, r, "ridesim_parking_searches_total", map[string]string{"outcome": "drop_off"}))
	assert.Equal(t, 1.0, value(t, r, "ridesim_mount_jobs_given_total", map[string]string{"job": "mount", "method": "inject"}))
	assert.Equal(t, 1.0, value(t, r, "ridesim_tick_duration_seconds", nil))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RideStarted()
		r.RideEnded("None", true)
		r.MountGenerated("local")
		r.GenerationFailed("ineligible")
		r.ParkingSearch("none")
		r.JobGiven("mount", "try")
		r.ObserveTick(time.Second)
	})
	assert.Nil(t, r.Registry())
}
