package mount

import (
	"fmt"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/config"
	"github.com/talgya/cavalry/internal/entropy"
	"github.com/talgya/cavalry/internal/social"
	"github.com/talgya/cavalry/internal/world"
)

// Pool identifies the candidate list a mount was drawn from.
type Pool uint8

const (
	PoolLocal    Pool = iota // Wild species native to the biome
	PoolForeign              // Any wild species
	PoolDomestic             // Farm species
	PoolCustom               // The rider kind's own table
)

func (p Pool) String() string {
	switch p {
	case PoolLocal:
		return "local"
	case PoolForeign:
		return "foreign"
	case PoolDomestic:
		return "domestic"
	case PoolCustom:
		return "custom"
	}
	return "unknown"
}

// SpawnContext describes where and for whom a party is spawning.
type SpawnContext struct {
	FactionID *social.FactionID
	Points    float64 // Threat budget; wild mounts must cost under half of it
	Biome     world.Terrain
	Season    world.Season
	Tick      uint64
}

// Pools are the candidate species lists with their relative weights.
type Pools struct {
	Local    []*agents.Species
	Foreign  []*agents.Species
	Domestic []*agents.Species

	LocalWeight    float64
	ForeignWeight  float64
	DomesticWeight float64

	Chance int // Percent; -1 when the faction never rides
}

// TotalWeight is the sum of the three pool weights.
func (p Pools) TotalWeight() float64 {
	return p.LocalWeight + p.ForeignWeight + p.DomesticWeight
}

// MountChance returns the percent chance that a rider of the faction gets a
// mount, or -1 when the faction never rides.
func MountChance(f *social.Faction, s *config.Settings) int {
	if f == nil || f.Mechanoid {
		return -1
	}
	if f.TechLevel.PreIndustrial() {
		return s.EnemyMountChancePreInd
	}
	return s.EnemyMountChance
}

// BuildPools assembles the candidate lists for a spawn, applying the
// faction's restrictions when it has any.
func (c *Coordinator) BuildPools(f *social.Faction, ctx SpawnContext) Pools {
	s := c.Settings
	p := Pools{
		LocalWeight:    float64(s.InBiomeWeight),
		ForeignWeight:  float64(s.OutBiomeWeight),
		DomesticWeight: float64(s.NonWildWeight),
		Chance:         MountChance(f, s),
	}

	wildOK := func(sp *agents.Species) bool {
		return sp.Mountable && sp.SeasonAcceptable(ctx.Season) && ctx.Points > sp.CombatPower*2
	}
	domesticOK := func(sp *agents.Species) bool { return sp.Mountable }

	var wild, domestic []*agents.Species
	allowed := func(*agents.Species) bool { return true }
	if f != nil && f.Restrictions != nil {
		r := f.Restrictions
		wild = c.lookupSpecies(r.AllowedWild)
		domestic = c.lookupSpecies(r.AllowedDomestic)
		allowedWild := make(map[string]bool, len(wild))
		for _, sp := range wild {
			allowedWild[sp.ID] = true
		}
		allowed = func(sp *agents.Species) bool { return allowedWild[sp.ID] }

		if r.MountChance > social.Keep {
			p.Chance = r.MountChance
		}
		if len(wild) == 0 {
			p.LocalWeight, p.ForeignWeight = 0, 0
		} else if r.WildWeight >= 0 {
			p.ForeignWeight = float64(r.WildWeight)
		}
		if len(domestic) == 0 {
			p.DomesticWeight = 0
		} else if r.DomesticWeight >= 0 {
			p.DomesticWeight = float64(r.DomesticWeight)
		}
	} else {
		wild = c.Catalog.WildAnimals()
		domestic = c.Catalog.DomesticAnimals()
	}

	for _, sp := range c.Catalog.BiomeAnimals(ctx.Biome) {
		if allowed(sp) && wildOK(sp) {
			p.Local = append(p.Local, sp)
		}
	}
	p.Foreign = filterSpecies(wild, wildOK)
	p.Domestic = filterSpecies(domestic, domesticOK)
	return p
}

func (c *Coordinator) lookupSpecies(ids []string) []*agents.Species {
	var out []*agents.Species
	for _, id := range ids {
		if sp := c.Catalog.Species(id); sp != nil {
			out = append(out, sp)
		}
	}
	return out
}

func filterSpecies(in []*agents.Species, keep func(*agents.Species) bool) []*agents.Species {
	var out []*agents.Species
	for _, sp := range in {
		if keep(sp) {
			out = append(out, sp)
		}
	}
	return out
}

// Breakpoints turns the three pool weights into cumulative percentages.
// Draws up to localBreak pick the local pool, draws up to foreignBreak the
// foreign pool, and the rest up to 100 the domestic pool.
func Breakpoints(local, foreign, domestic float64) (localBreak, foreignBreak float64) {
	total := local + foreign + domestic
	if total <= 0 {
		return 0, 0
	}
	localBreak = local / total * 100
	foreignBreak = localBreak + foreign/total*100
	return localBreak, foreignBreak
}

// PickPool maps a draw in [1, 100] to a pool. A draw equal to a breakpoint
// goes to the lower pool.
func PickPool(draw int, localBreak, foreignBreak float64) Pool {
	d := float64(draw)
	switch {
	case d <= localBreak:
		return PoolLocal
	case d <= foreignBreak:
		return PoolForeign
	default:
		return PoolDomestic
	}
}

// CalculateCommonality weights a wild species for a rider. Common, tame
// species suit unskilled riders; rare, wild ones suit skilled riders. A
// non-zero average replaces the species' own commonality.
func CalculateCommonality(sp *agents.Species, biome world.Terrain, skill int, average float64) float64 {
	commonality := average
	if commonality == 0 {
		commonality = sp.CommonalityIn(biome)
	}
	// Only skill above 5 counts.
	lvl := 0.0
	if skill > 5 {
		lvl = float64(skill - 5)
	}
	adjusted := commonality*(15-commonality)/15 + (1-commonality)*lvl/15
	penalty := 1 - sp.Wildness*((15-lvl)/15)
	return adjusted * penalty
}

// DomesticWeight favours cheap, slow species.
func DomesticWeight(sp *agents.Species) float64 {
	if sp.RidingSpeed <= 0 {
		return sp.MarketValue
	}
	return sp.MarketValue / sp.RidingSpeed
}

// GenerateMounts gives the riders of a freshly spawned party their mounts.
// Each chosen animal is spawned next to its rider, trained, and coupled
// immediately. The returned slice is the batch with the new mounts appended.
// On ErrNoCandidate the slice still holds the mounts spawned before the
// failing rider.
func (c *Coordinator) GenerateMounts(batch []*agents.Agent, ctx SpawnContext) ([]*agents.Agent, error) {
	out := append([]*agents.Agent(nil), batch...)

	var f *social.Faction
	if ctx.FactionID != nil {
		f = c.World.Faction(*ctx.FactionID)
	}
	pools := c.BuildPools(f, ctx)
	if pools.Chance < 0 {
		c.Metrics.GenerationFailed("ineligible")
		return out, ErrIneligible
	}
	localBreak, foreignBreak := Breakpoints(pools.LocalWeight, pools.ForeignWeight, pools.DomesticWeight)
	average := c.Catalog.AverageCommonality(ctx.Biome)

	for _, rider := range batch {
		if !c.humanlike(rider) {
			continue
		}
		kind := c.Catalog.Kind(rider.Kind)
		if kind != nil && kind.Slave {
			continue
		}

		draw := entropy.Range(c.Rand, 1, 100)
		var chosen *agents.Species
		pool := PoolCustom

		if kind != nil && kind.CustomMounts != nil {
			if draw > kind.CustomMounts.Chance {
				continue
			}
			if m, ok := WeightedPick(c.Rand, kind.CustomMounts.Mounts, func(m agents.WeightedMount) float64 {
				return float64(m.Weight)
			}); ok {
				chosen = c.Catalog.Species(m.Species)
			}
		} else {
			if draw > pools.Chance {
				continue
			}
			skill := rider.Skills.Handling
			if skill >= c.Settings.MinHandlingLevel {
				continue
			}
			if pools.TotalWeight() > 0 {
				pool = PickPool(draw, localBreak, foreignBreak)
				chosen = c.pickSpecies(pools, pool, ctx.Biome, skill, average)
			}
		}

		var animal *agents.Agent
		if chosen != nil {
			animal = c.Spawner.SpawnAnimal(chosen.ID, rider.Position, rider.FactionID, ctx.Tick)
		}
		if animal == nil {
			c.warn("could not find any suitable animal", "rider", rider.ID)
			c.Metrics.GenerationFailed("no_candidate")
			return out, fmt.Errorf("rider %d: %w", rider.ID, ErrNoCandidate)
		}

		animal.Trained = true
		animal.Spawned = true
		animal.Rotation = rider.Rotation
		c.World.Spawn(animal)
		if _, err := c.GiveMountJob(rider, animal, Instant, nil, nil); err != nil {
			return out, err
		}
		out = append(out, animal)
		c.Metrics.MountGenerated(pool.String())
	}
	return out, nil
}

func (c *Coordinator) pickSpecies(p Pools, pool Pool, biome world.Terrain, skill int, average float64) *agents.Species {
	var (
		sp *agents.Species
		ok bool
	)
	switch pool {
	case PoolLocal:
		sp, ok = WeightedPick(c.Rand, p.Local, func(s *agents.Species) float64 {
			return CalculateCommonality(s, biome, skill, average)
		})
	case PoolForeign:
		sp, ok = WeightedPick(c.Rand, p.Foreign, func(s *agents.Species) float64 {
			return CalculateCommonality(s, biome, skill, average)
		})
	default:
		sp, ok = WeightedPick(c.Rand, p.Domestic, DomesticWeight)
	}
	if !ok {
		return nil
	}
	return sp
}
