package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/extdata"
	"github.com/talgya/cavalry/internal/mount"
	"github.com/talgya/cavalry/internal/social"
	"github.com/talgya/cavalry/internal/world"
)

// State is everything needed to bring a saved world back. Zones travel
// with the map.
type State struct {
	Agents []*agents.Agent
	Groups []*social.Group
	Riding []extdata.Entry
	Tick   uint64
	Season world.Season
}

// Snapshot captures the current world state.
func (s *Simulation) Snapshot() State {
	groups := make([]*social.Group, 0, len(s.Groups))
	for _, g := range s.Groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return State{
		Agents: append([]*agents.Agent(nil), s.Agents...),
		Groups: groups,
		Riding: s.Store.Snapshot(),
		Tick:   s.LastTick,
		Season: s.Season,
	}
}

// Restore loads a saved state into an empty simulation and puts every
// rider whose mount is still on the map back in the saddle.
func (s *Simulation) Restore(st State) error {
	var maxID agents.AgentID
	for _, a := range st.Agents {
		spawned := a.Spawned
		s.Spawn(a)
		a.Spawned = spawned
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	s.Spawner.SetNextID(maxID + 1)

	for _, g := range st.Groups {
		s.Groups[g.ID] = g
		if g.ID > s.nextGroup {
			s.nextGroup = g.ID
		}
	}
	if err := s.Store.Restore(st.Riding); err != nil {
		return fmt.Errorf("riding records: %w", err)
	}
	s.LastTick = st.Tick
	s.Season = st.Season

	resumed := 0
	for _, e := range st.Riding {
		if e.Mount == nil {
			continue
		}
		rider, animal := s.index[e.ID], s.index[*e.Mount]
		switch {
		case rider.Present() && animal.Present():
			if _, err := s.Rides.GiveMountJob(rider, animal, mount.Instant, nil, nil); err != nil {
				slog.Warn("could not resume ride", "rider", e.ID, "mount", *e.Mount, "error", err)
				s.Store.Dismount(e.ID)
				continue
			}
			resumed++
		case rider.Present():
			s.Store.Dismount(e.ID)
		}
	}
	slog.Info("world state restored", "agents", len(st.Agents), "groups", len(st.Groups), "rides", resumed, "tick", st.Tick)
	return nil
}
