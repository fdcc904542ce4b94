package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/mount"
	"github.com/talgya/cavalry/internal/social"
	"github.com/talgya/cavalry/internal/world"
)

const (
	// arriveRadius is how close to the rally point half the party must be
	// before a travelling group settles in.
	arriveRadius = 4
	// stayTicks is how long a group holds its position before leaving.
	stayTicks = 6 * TicksPerSimHour
)

// PartySpec describes a group to bring onto the map.
type PartySpec struct {
	FactionID social.FactionID
	Kind      string
	Count     int
	Points    float64 // Threat budget, gates wild mounts
}

// SpawnParty brings a travel group in from the map edge. Hostile parties
// assault the colony; others camp near the center for a while and leave.
// Riders get their mounts as they arrive. A failed mount roll is logged and
// does not stop the party.
func (s *Simulation) SpawnParty(spec PartySpec, tick uint64) (*social.Group, error) {
	f := s.Faction(spec.FactionID)
	if f == nil {
		return nil, fmt.Errorf("party of faction %d: %w", spec.FactionID, ErrUnknownFaction)
	}
	if s.Catalog.Kind(spec.Kind) == nil {
		return nil, fmt.Errorf("party kind %q: %w", spec.Kind, ErrUnknownKind)
	}
	entry, ok := s.entryCell()
	if !ok {
		return nil, ErrNoEntry
	}

	fid := f.ID
	members := s.Spawner.SpawnGroup(s.WorldMap, spec.Kind, spec.Count, entry, &fid, tick)
	for _, a := range members {
		s.Spawn(a)
	}

	s.nextGroup++
	g := &social.Group{
		ID:        s.nextGroup,
		FactionID: f.ID,
		Phase:     social.PhaseTravel,
		Rally:     s.rallyPoint(),
		Since:     tick,
	}
	s.Groups[g.ID] = g

	all, err := s.Rides.GenerateMounts(members, mount.SpawnContext{
		FactionID: &fid,
		Points:    spec.Points,
		Biome:     s.WorldMap.Biome(entry),
		Season:    s.Season,
		Tick:      tick,
	})
	switch {
	case errors.Is(err, mount.ErrIneligible):
		slog.Info("party rides in on foot", "faction", f.Name)
	case err != nil:
		slog.Warn("mount generation incomplete", "faction", f.Name, "error", err)
	}
	for _, a := range all {
		gid := g.ID
		a.GroupID = &gid
		g.Add(uint64(a.ID))
	}

	category := "caravan"
	if f.HostileTo(s.PlayerFaction()) {
		category = "raid"
	}
	s.EmitEvent(category, "%s arrived with %d members and %d mounts", f.Name, len(members), len(all)-len(members))
	slog.Info("party spawned", "faction", f.Name, "group", g.ID, "members", len(members), "mounts", len(all)-len(members), "entry", entry)
	return g, nil
}

// SeedColony spawns the player's colonists near the map center, each with
// a trained animal reserved for it.
func (s *Simulation) SeedColony(kind string, count int, mountSpecies string, tick uint64) ([]*agents.Agent, error) {
	player := s.PlayerFaction()
	if player == nil {
		return nil, fmt.Errorf("colony: %w", ErrUnknownFaction)
	}
	if s.Catalog.Kind(kind) == nil {
		return nil, fmt.Errorf("colony kind %q: %w", kind, ErrUnknownKind)
	}
	fid := player.ID
	home := s.rallyPoint()
	colonists := s.Spawner.SpawnGroup(s.WorldMap, kind, count, home, &fid, tick)
	for _, c := range colonists {
		c.Colonist = true
		s.Spawn(c)
		if mountSpecies == "" {
			continue
		}
		animal := s.Spawner.SpawnAnimal(mountSpecies, c.Position, &fid, tick)
		if animal == nil {
			return colonists, fmt.Errorf("colony mount %q: %w", mountSpecies, ErrUnknownKind)
		}
		animal.Trained = true
		s.Spawn(animal)
		s.Store.Reserve(c.ID, animal.ID)
	}
	s.EmitEvent("colony", "%d colonists settled", len(colonists))
	return colonists, nil
}

// entryCell picks a standable cell on the map edge.
func (s *Simulation) entryCell() (world.HexCoord, bool) {
	for i := 0; i < 50; i++ {
		c, ok := s.WorldMap.TryFindRandomCellNear(world.HexCoord{}, s.WorldMap.Radius, 1, s.rng, s.WorldMap.Standable)
		if !ok {
			continue
		}
		edge := s.exitCell(c)
		if s.WorldMap.Standable(edge) && s.WorldMap.CloseToEdge(edge, 3) {
			return edge, true
		}
	}
	return world.HexCoord{}, false
}

// rallyPoint is the standable cell closest to the map center.
func (s *Simulation) rallyPoint() world.HexCoord {
	center := world.HexCoord{}
	for r := 0; r <= s.WorldMap.Radius; r++ {
		for _, c := range world.Within(center, r) {
			if world.Distance(center, c) == r && s.WorldMap.Standable(c) {
				return c
			}
		}
	}
	return center
}

// advanceGroups drops departed members and moves each group to its next
// phase when it is due.
func (s *Simulation) advanceGroups(tick uint64) {
	ids := make([]social.GroupID, 0, len(s.Groups))
	for id := range s.Groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		g := s.Groups[id]
		for _, m := range append([]uint64(nil), g.Members...) {
			if a := s.index[agents.AgentID(m)]; a == nil || !a.Present() {
				g.Remove(m)
			}
		}
		if len(g.Members) == 0 {
			delete(s.Groups, id)
			continue
		}

		hostile := s.Faction(g.FactionID).HostileTo(s.PlayerFaction())
		switch {
		case g.Phase == social.PhaseTravel && s.arrived(g):
			if hostile {
				s.setPhase(g, social.PhaseAssault, tick)
			} else {
				s.setPhase(g, social.PhaseDefendTraderCaravan, tick)
			}
		case (g.Phase == social.PhaseAssault || g.Phase.Guarding()) && tick-g.Since >= stayTicks:
			s.setPhase(g, social.PhaseExitMap, tick)
		case g.Phase == social.PhaseAssault && s.routed(g):
			s.setPhase(g, social.PhaseExitMap, tick)
		}
	}
}

// arrived reports whether half the group's humanlike members are near the
// rally point.
func (s *Simulation) arrived(g *social.Group) bool {
	total, near := 0, 0
	for _, m := range g.Members {
		a := s.index[agents.AgentID(m)]
		if sp := s.Catalog.SpeciesOf(a); sp == nil || !sp.Humanlike() {
			continue
		}
		total++
		if world.Distance(a.Position, g.Rally) <= arriveRadius {
			near++
		}
	}
	return total > 0 && near*2 >= total
}

// routed reports whether every humanlike member is down.
func (s *Simulation) routed(g *social.Group) bool {
	for _, m := range g.Members {
		a := s.index[agents.AgentID(m)]
		if sp := s.Catalog.SpeciesOf(a); sp != nil && sp.Humanlike() && !a.Downed {
			return false
		}
	}
	return true
}

// setPhase switches a group's activity and sweeps its members' jobs so
// everyone picks up the new duty. Mounts carrying riders are exempt.
func (s *Simulation) setPhase(g *social.Group, p social.Phase, tick uint64) {
	if s.Settings.Logging {
		slog.Info("group phase changed", "group", g.ID, "from", g.Phase, "to", p, "tick", tick)
	}
	g.Phase = p
	g.Since = tick
	for _, m := range g.Members {
		if t := s.trackers[agents.AgentID(m)]; t != nil {
			t.ForceEnd(jobs.InterruptForced)
		}
	}
	if f := s.Faction(g.FactionID); f != nil {
		s.EmitEvent("caravan", "%s: %s", f.Name, p)
	}
}
