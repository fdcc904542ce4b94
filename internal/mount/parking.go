package mount

import (
	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/world"
)

// FindDismountPoint picks where a rider heading for dest should leave its
// mount. A drop-off zone wins, then the nearest pen. When neither yields a
// reachable cell within the hitching distance, a free safe cell near dest is
// searched for instead.
func (c *Coordinator) FindDismountPoint(mount, rider *agents.Agent, dest world.HexCoord) (world.HexCoord, bool) {
	m := c.World.Map()
	st := c.Settings

	var (
		cell    world.HexCoord
		found   bool
		outcome string
	)
	if _, dropOff := m.LookupNamedZones(); dropOff != nil {
		cell, found = dropOff.ClosestCell(dest)
		outcome = "drop_off"
	} else if pen := m.ClosestPen(rider.Position); pen != nil {
		cell, found = m.PlaceInPen(pen, rider.Position)
		outcome = "pen"
	}
	if found && !m.CanReach(rider.Position, cell) {
		found = false
	}

	if !found || world.Distance(cell, dest) > st.AutoHitchDistance {
		free := func(at world.HexCoord) bool {
			return m.Standable(at) &&
				!m.Dangerous(at) &&
				!m.Fogged(at) &&
				!c.World.Occupied(at, mount.ID, rider.ID) &&
				m.CanReach(rider.Position, at)
		}
		cell, found = m.TryFindRandomCellNear(dest, st.HitchSearchRadius, st.HitchSearchTries, c.Rand, free)
		outcome = "hitch"
	}

	if !found {
		outcome = "none"
	}
	c.Metrics.ParkingSearch(outcome)
	return cell, found
}
