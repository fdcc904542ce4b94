package engine

import (
	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/social"
	"github.com/talgya/cavalry/internal/world"
)

const (
	colonyWorkRadius = 24
	campRadius       = 4
	assaultSight     = 30
)

// think picks an agent's next job when its queue is empty.
func (s *Simulation) think(t *jobs.Tracker) jobs.ThinkResult {
	a := s.index[t.Owner()]
	if !a.Present() || a.Downed {
		return jobs.ThinkResult{}
	}
	if a.Drafted {
		return jobs.ThinkResult{
			Job:        &jobs.Job{Def: jobs.DefWaitStill, Count: defaultWaitTicks},
			SourceNode: "drafted",
		}
	}
	sp := s.Catalog.SpeciesOf(a)
	humanlike := sp != nil && sp.Humanlike()
	// Animals travel with their group but graze while it camps.
	if g := s.GroupOf(a); g != nil && (humanlike || g.Phase.Moving()) {
		return s.thinkDuty(a, g)
	}
	if !humanlike {
		return s.thinkAnimal(a)
	}
	if a.Colonist {
		return s.thinkColonist(t, a)
	}
	return s.wanderResult(a, "idle")
}

// thinkDuty follows the group's current phase.
func (s *Simulation) thinkDuty(a *agents.Agent, g *social.Group) jobs.ThinkResult {
	res := jobs.ThinkResult{SourceNode: "duty", Tag: g.Phase.String()}
	switch g.Phase {
	case social.PhaseTravel:
		a.Duty = agents.DutyTravelOrWait
		res.Job = jobs.NewCellJob(jobs.DefGoto, g.Rally)
	case social.PhaseExitMap, social.PhaseExitMapEscortCarriers, social.PhaseExitMapTraderFighting:
		a.Duty = agents.DutyTravelOrLeave
		res.Job = jobs.NewCellJob(jobs.DefExitMap, s.exitCell(a.Position))
	case social.PhaseAssault:
		a.Duty = agents.DutyAssault
		if foe := s.nearestFoe(a); foe != nil {
			res.Job = jobs.NewJob(jobs.DefAttack, foe.ID)
		} else {
			res.Job = jobs.NewCellJob(jobs.DefGoto, g.Rally)
		}
	case social.PhaseDefendPoint, social.PhaseDefendTraderCaravan:
		a.Duty = agents.DutyDefend
		cell, ok := s.WorldMap.TryFindRandomCellNear(g.Rally, campRadius, 10, s.rng, s.WorldMap.Standable)
		if !ok {
			cell = g.Rally
		}
		res.Job = jobs.NewCellJob(jobs.DefWander, cell)
	default:
		a.Duty = agents.DutyNone
		res.Job = &jobs.Job{Def: jobs.DefWait, Count: defaultWaitTicks}
	}
	return res
}

// thinkColonist splits a colonist's day between work, strolls and rest.
// Work sites may be far away: the colonist walks (or rides) there first and
// queues the work itself for arrival.
func (s *Simulation) thinkColonist(t *jobs.Tracker, a *agents.Agent) jobs.ThinkResult {
	roll := s.rng.Intn(10)
	switch {
	case roll < 5:
		cell, ok := s.WorldMap.TryFindRandomCellNear(a.Position, colonyWorkRadius, 20, s.rng, s.WorldMap.Standable)
		if ok {
			work := jobs.NewCellJob(jobs.DefWork, cell)
			work.Count = defaultWorkTicks
			t.EnqueueFirst(work)
			return jobs.ThinkResult{Job: jobs.NewCellJob(jobs.DefGoto, cell), SourceNode: "colony", Tag: "work"}
		}
	case roll < 8:
		return s.wanderResult(a, "colony")
	}
	return jobs.ThinkResult{
		Job:        &jobs.Job{Def: jobs.DefRest, Count: defaultRestTicks},
		SourceNode: "colony",
		Tag:        "rest",
	}
}

// thinkAnimal keeps a roped animal at its handler's side and otherwise lets
// it graze.
func (s *Simulation) thinkAnimal(a *agents.Agent) jobs.ThinkResult {
	if a.Roped {
		if rec, ok := s.Store.Lookup(a.ID); ok {
			if owner := s.index[rec.ReservedBy()]; owner.Present() {
				return jobs.ThinkResult{
					Job:        &jobs.Job{Def: jobs.DefFollow, Target: owner.ID, Count: defaultFollowTicks},
					SourceNode: "animal",
					Tag:        "follow",
				}
			}
		}
	}
	if s.rng.Intn(2) == 0 {
		return jobs.ThinkResult{
			Job:        &jobs.Job{Def: jobs.DefWait, Count: defaultWaitTicks},
			SourceNode: "animal",
			Tag:        "graze",
		}
	}
	return s.wanderResult(a, "animal")
}

func (s *Simulation) wanderResult(a *agents.Agent, node string) jobs.ThinkResult {
	cell, ok := s.WorldMap.TryFindRandomCellNear(a.Position, wanderRadius, 10, s.rng, s.WorldMap.Standable)
	if !ok {
		cell = a.Position
	}
	return jobs.ThinkResult{Job: jobs.NewCellJob(jobs.DefWander, cell), SourceNode: node, Tag: "wander"}
}

// nearestFoe returns the closest hostile humanlike agent still standing.
func (s *Simulation) nearestFoe(a *agents.Agent) *agents.Agent {
	var best *agents.Agent
	bestDist := assaultSight + 1
	for _, o := range s.Agents {
		if o == a || !o.Present() || o.Downed || !s.HostileTo(a, o) {
			continue
		}
		if sp := s.Catalog.SpeciesOf(o); sp == nil || !sp.Humanlike() {
			continue
		}
		if d := world.Distance(a.Position, o.Position); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}
