// Package engine runs the host simulation the riding rules live in: the
// tick loop, the agents and their schedulers, movement, travel groups and
// the everyday jobs agents do between rides.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/talgya/cavalry/internal/world"
)

// TickSchedule defines when each system runs relative to the tick counter.
const (
	TicksPerSimHour   = 60    // 60 ticks = 1 sim-hour
	TicksPerSimDay    = 1440  // 24 hours × 60
	TicksPerSimSeason = 21600 // 15 days
)

// Engine drives the simulation forward.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base tick interval
	running  atomic.Bool

	// Callbacks for each tick layer, populated during setup.
	OnTick   func(tick uint64) // Every tick (sim-minute)
	OnHour   func(tick uint64) // Every 60 ticks
	OnDay    func(tick uint64) // Every 1440 ticks
	OnSeason func(tick uint64) // Every 21600 ticks
}

// NewEngine creates an engine running ticksPerSec ticks per wall second.
func NewEngine(ticksPerSec int) *Engine {
	if ticksPerSec <= 0 {
		ticksPerSec = 1
	}
	return &Engine{
		Speed:    1.0,
		Interval: time.Second / time.Duration(ticksPerSec),
	}
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run steps the simulation until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed, "interval", e.Interval)

	for e.running.Load() {
		if ctx.Err() != nil {
			break
		}
		if e.Speed <= 0 {
			// Paused
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.Step()

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			select {
			case <-ctx.Done():
			case <-time.After(target - elapsed):
			}
		}
	}

	e.running.Store(false)
	slog.Info("simulation engine stopped", "tick", e.Tick)
}

// Stop halts the simulation loop after the current tick.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}
	if e.Tick%TicksPerSimHour == 0 && e.OnHour != nil {
		e.OnHour(e.Tick)
	}
	if e.Tick%TicksPerSimDay == 0 && e.OnDay != nil {
		e.OnDay(e.Tick)
	}
	if e.Tick%TicksPerSimSeason == 0 && e.OnSeason != nil {
		e.OnSeason(e.Tick)
	}
}

// SimTime returns a human-readable simulation time string from a tick number.
func SimTime(tick uint64) string {
	minutes := tick % 60
	totalHours := tick / 60
	hours := totalHours % 24
	totalDays := totalHours / 24
	days := totalDays%15 + 1
	seasons := totalDays / 15
	season := world.Season(seasons % 4)
	years := seasons/4 + 1

	return fmt.Sprintf("%s Day %d, %d:%02d Year %d",
		world.SeasonName(season), days, hours, minutes, years)
}

// SeasonAt returns the season a tick falls in.
func SeasonAt(tick uint64) world.Season {
	return world.Season((tick / TicksPerSimSeason) % 4)
}
