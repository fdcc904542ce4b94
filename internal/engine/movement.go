package engine

import (
	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/mount"
	"github.com/talgya/cavalry/internal/world"
)

// Walking speed in ticks per cell. Riders move at their mount's pace.
const (
	walkTicksPerCell = 2
	rideTicksPerCell = 1
)

// move advances an agent one step along its path when its pace allows.
// Mounts carrying a rider are moved by the ride itself.
func (s *Simulation) move(a *agents.Agent, tick uint64) {
	if !a.Path.Moving() || a.Downed || a.Posture != agents.PostureStanding {
		return
	}
	if mount.IsMountedAnimal(s.trackers[a.ID]) {
		return
	}
	if tick%s.ticksPerCell(a) != 0 {
		return
	}

	dest := *a.Path.Destination
	if a.Position == dest {
		a.Path.StopDead()
		return
	}
	if len(a.Path.Cells) == 0 {
		route := s.WorldMap.FindPath(a.Position, dest)
		if len(route) == 0 {
			a.Path.StopDead()
			return
		}
		a.Path.Cells = route
	}

	next := a.Path.Cells[0]
	if !s.WorldMap.Standable(next) {
		// Terrain changed under the route; plan again next step.
		a.Path.Cells = nil
		return
	}
	a.Rotation = facing(a.Position, next)
	a.Position = next
	a.Path.Cells = a.Path.Cells[1:]
	a.Draw = agents.DrawState{X: float64(next.Q), Y: float64(next.R)}
	if a.Position == dest {
		a.Path.StopDead()
	}
}

func (s *Simulation) ticksPerCell(a *agents.Agent) uint64 {
	if rec, ok := s.Store.Lookup(a.ID); ok && rec.Mounted() {
		return rideTicksPerCell
	}
	return walkTicksPerCell
}

// facing picks the rotation that best matches a one-cell step.
func facing(from, to world.HexCoord) agents.Rotation {
	dq, dr := to.Q-from.Q, to.R-from.R
	switch {
	case dr < 0 && dq >= 0:
		return agents.RotNorth
	case dr > 0 && dq <= 0:
		return agents.RotSouth
	case dq > 0:
		return agents.RotEast
	default:
		return agents.RotWest
	}
}
