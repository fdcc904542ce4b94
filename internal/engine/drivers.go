package engine

import (
	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/world"
)

// Default durations in ticks for jobs that do not carry a Count.
const (
	defaultWaitTicks   = 60
	defaultWorkTicks   = 120
	defaultRestTicks   = 90
	defaultFollowTicks = 300
	defaultAttackTicks = 600
	attackCooldown     = 60
	followDistance     = 2
	wanderRadius       = 6
	// stuckTicks bounds a walk that makes no progress.
	stuckTicks = 400
	// downChance is the percent chance a landed blow downs the target.
	downChance = 10
)

func (s *Simulation) registerDrivers() {
	reg := s.registry
	reg.Register(jobs.DefGoto, func(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
		return &walkDriver{s: s, t: t, job: job}
	})
	reg.Register(jobs.DefWander, func(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
		return &walkDriver{s: s, t: t, job: job, wander: true}
	})
	reg.Register(jobs.DefWork, func(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
		return &workDriver{walk: walkDriver{s: s, t: t, job: job}, left: countOr(job, defaultWorkTicks)}
	})
	reg.Register(jobs.DefExitMap, func(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
		return &exitDriver{walk: walkDriver{s: s, t: t, job: job}}
	})
	reg.Register(jobs.DefAttack, func(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
		return &attackDriver{s: s, t: t, target: job.Target, left: countOr(job, defaultAttackTicks)}
	})
	reg.Register(jobs.DefFollow, func(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
		return &followDriver{s: s, t: t, target: job.Target, left: countOr(job, defaultFollowTicks)}
	})
	reg.Register(jobs.DefRest, func(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
		return &restDriver{s: s, t: t, left: countOr(job, defaultRestTicks)}
	})
	for _, def := range []jobs.Def{jobs.DefWait, jobs.DefWaitStill, jobs.DefSocial, jobs.DefVomit} {
		reg.Register(def, func(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
			return &waitDriver{s: s, t: t, left: countOr(job, defaultWaitTicks)}
		})
	}
}

func countOr(job *jobs.Job, def int) int {
	if job.Count > 0 {
		return job.Count
	}
	return def
}

// steer points an agent at dest. A rider whose mount is taking it to a
// dismount point keeps that route until the ride ends.
func (s *Simulation) steer(a *agents.Agent, dest world.HexCoord) {
	if a.Path.DestinationOr(a.Position) == dest || s.Rides.Parking(a.ID) {
		return
	}
	a.Path.StartPath(dest)
}

// halt stops an agent where it stands, unless it is being parked.
func (s *Simulation) halt(a *agents.Agent) {
	if !s.Rides.Parking(a.ID) {
		a.Path.StopDead()
	}
}

// walkDriver walks to the job's cell. A wander job without a cell picks a
// nearby one first.
type walkDriver struct {
	s       *Simulation
	t       *jobs.Tracker
	job     *jobs.Job
	wander  bool
	target  world.HexCoord
	planned bool
	ticks   int
}

// step reports whether the agent stands on the target and whether the walk
// can still finish.
func (d *walkDriver) step() (arrived, ok bool) {
	a := d.s.index[d.t.Owner()]
	if !a.Present() || a.Downed {
		return false, false
	}
	if !d.planned {
		d.planned = true
		switch {
		case d.job.HasCell:
			d.target = d.job.Cell
		case d.wander:
			cell, found := d.s.WorldMap.TryFindRandomCellNear(a.Position, wanderRadius, 10, d.s.rng, d.s.WorldMap.Standable)
			if !found {
				cell = a.Position
			}
			d.target = cell
		default:
			d.target = a.Position
		}
		if !d.s.WorldMap.CanReach(a.Position, d.target) && a.Position != d.target {
			return false, false
		}
	}
	if a.Position == d.target {
		return true, true
	}
	d.ticks++
	if d.ticks > stuckTicks {
		return false, false
	}
	d.s.steer(a, d.target)
	return false, true
}

func (d *walkDriver) Tick(uint64) (jobs.Condition, bool) {
	arrived, ok := d.step()
	switch {
	case !ok:
		return jobs.Incompletable, true
	case arrived:
		return jobs.Succeeded, true
	}
	return jobs.Ongoing, false
}

func (d *walkDriver) Finish(cond jobs.Condition) {
	if cond == jobs.Succeeded {
		return
	}
	if a := d.s.index[d.t.Owner()]; a != nil && a.Path.DestinationOr(a.Position) == d.target {
		a.Path.StopDead()
	}
}

// workDriver walks to a cell and works there for a while.
type workDriver struct {
	walk walkDriver
	left int
}

func (d *workDriver) Tick(uint64) (jobs.Condition, bool) {
	arrived, ok := d.walk.step()
	if !ok {
		return jobs.Incompletable, true
	}
	if !arrived {
		return jobs.Ongoing, false
	}
	d.left--
	if d.left <= 0 {
		return jobs.Succeeded, true
	}
	return jobs.Ongoing, false
}

func (d *workDriver) Finish(cond jobs.Condition) { d.walk.Finish(cond) }

// exitDriver walks to the nearest map edge and leaves through it.
type exitDriver struct {
	walk walkDriver
}

func (d *exitDriver) Tick(uint64) (jobs.Condition, bool) {
	s := d.walk.s
	a := s.index[d.walk.t.Owner()]
	if !d.walk.planned && !d.walk.job.HasCell && a != nil {
		d.walk.job.Cell, d.walk.job.HasCell = s.exitCell(a.Position), true
	}
	arrived, ok := d.walk.step()
	if !ok {
		return jobs.Incompletable, true
	}
	if !arrived {
		return jobs.Ongoing, false
	}
	s.ExitMap(a, a.Position)
	return jobs.Succeeded, true
}

func (d *exitDriver) Finish(cond jobs.Condition) { d.walk.Finish(cond) }

// exitCell finds a standable edge cell near the one closest to pos.
func (s *Simulation) exitCell(pos world.HexCoord) world.HexCoord {
	edge := s.WorldMap.ClosestEdge(pos)
	if s.WorldMap.Standable(edge) {
		return edge
	}
	ok := func(c world.HexCoord) bool {
		return s.WorldMap.Standable(c) && s.WorldMap.CloseToEdge(c, 2)
	}
	if c, found := s.WorldMap.TryFindRandomCellNear(edge, 4, 30, s.rng, ok); found {
		return c
	}
	return pos
}

// waitDriver stands still for a number of ticks.
type waitDriver struct {
	s    *Simulation
	t    *jobs.Tracker
	left int
}

func (d *waitDriver) Tick(uint64) (jobs.Condition, bool) {
	a := d.s.index[d.t.Owner()]
	if !a.Present() {
		return jobs.Incompletable, true
	}
	d.s.halt(a)
	d.left--
	if d.left <= 0 {
		return jobs.Succeeded, true
	}
	return jobs.Ongoing, false
}

func (d *waitDriver) Finish(jobs.Condition) {}

// restDriver lies down for a while.
type restDriver struct {
	s    *Simulation
	t    *jobs.Tracker
	left int
}

func (d *restDriver) Tick(uint64) (jobs.Condition, bool) {
	a := d.s.index[d.t.Owner()]
	if !a.Present() {
		return jobs.Incompletable, true
	}
	if d.s.Rides.Parking(a.ID) {
		return jobs.Ongoing, false
	}
	a.Path.StopDead()
	a.Posture = agents.PostureLying
	d.left--
	if d.left <= 0 {
		return jobs.Succeeded, true
	}
	return jobs.Ongoing, false
}

func (d *restDriver) Finish(jobs.Condition) {
	if a := d.s.index[d.t.Owner()]; a != nil && !a.Downed {
		a.Posture = agents.PostureStanding
	}
}

// followDriver keeps close to another agent.
type followDriver struct {
	s      *Simulation
	t      *jobs.Tracker
	target agents.AgentID
	left   int
}

func (d *followDriver) Tick(uint64) (jobs.Condition, bool) {
	a := d.s.index[d.t.Owner()]
	leader := d.s.index[d.target]
	if !a.Present() || !leader.Present() {
		return jobs.Incompletable, true
	}
	d.left--
	if d.left <= 0 {
		return jobs.Succeeded, true
	}
	if world.Distance(a.Position, leader.Position) > followDistance {
		d.s.steer(a, leader.Position)
	} else {
		d.s.halt(a)
	}
	return jobs.Ongoing, false
}

func (d *followDriver) Finish(jobs.Condition) {
	if a := d.s.index[d.t.Owner()]; a != nil {
		a.Path.StopDead()
	}
}

// attackDriver closes in on a hostile target and strikes it until it goes
// down or leaves.
type attackDriver struct {
	s      *Simulation
	t      *jobs.Tracker
	target agents.AgentID
	left   int
}

func (d *attackDriver) Tick(tick uint64) (jobs.Condition, bool) {
	s := d.s
	a := s.index[d.t.Owner()]
	foe := s.index[d.target]
	if !a.Present() || a.Downed {
		return jobs.Incompletable, true
	}
	if !foe.Present() || foe.Downed {
		return jobs.Succeeded, true
	}
	if !s.HostileTo(a, foe) {
		return jobs.Incompletable, true
	}
	d.left--
	if d.left <= 0 {
		return jobs.Succeeded, true
	}

	a.AimTarget = foe.ID
	if world.Distance(a.Position, foe.Position) > 1 {
		s.steer(a, foe.Position)
		return jobs.Ongoing, false
	}
	s.halt(a)
	if a.LastAttack != nil && tick < a.LastAttack.Tick+attackCooldown {
		return jobs.Ongoing, false
	}
	a.LastAttack = &agents.Attack{Target: foe.ID, Tick: tick}
	if s.rng.Intn(100) < downChance {
		foe.Downed = true
		foe.Posture = agents.PostureLying
		foe.Path.StopDead()
		s.EmitEvent("raid", "%s was struck down by %s", foe.Name, a.Name)
		return jobs.Succeeded, true
	}
	return jobs.Ongoing, false
}

func (d *attackDriver) Finish(jobs.Condition) {
	if a := d.s.index[d.t.Owner()]; a != nil {
		a.AimTarget = agents.NoAgent
	}
}
