package mount

import (
	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/world"
)

// interactTicks is how long a rider spends settling onto its mount.
const interactTicks = 150

type mountingStage uint8

const (
	stageClaim mountingStage = iota
	stageApproach
	stageCooldown
	stageInteract
)

// MountingDriver runs the rider's side of mounting: claim the mount, walk
// to it, then spend a while climbing on. The coupling is only recorded when
// the job succeeds.
type MountingDriver struct {
	c        *Coordinator
	t        *jobs.Tracker
	mountID  agents.AgentID
	stage    mountingStage
	interact int
}

func (c *Coordinator) newMountingDriver(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
	return &MountingDriver{c: c, t: t, mountID: job.Target}
}

func (d *MountingDriver) Tick(tick uint64) (jobs.Condition, bool) {
	c := d.c
	rider := c.World.Agent(d.t.Owner())
	mount := c.World.Agent(d.mountID)
	if rider == nil || !rider.Present() || mount == nil || !mount.Present() || mount.Downed {
		return jobs.Incompletable, true
	}
	if !agents.SameFaction(rider, mount) || !c.World.Map().CanReach(rider.Position, mount.Position) {
		return jobs.Incompletable, true
	}

	if d.stage == stageClaim {
		mt := c.World.Tracker(mount.ID)
		if mt == nil {
			return jobs.Incompletable, true
		}
		mt.StopAll()
		mount.Path.StopDead()
		if !mt.TryTakeOrderedJob(&jobs.Job{Def: jobs.DefMounted, Target: rider.ID}) {
			return jobs.Incompletable, true
		}
		d.stage = stageApproach
	}

	// Someone else may have claimed the mount since.
	if mt := c.World.Tracker(mount.ID); mt == nil || mt.CurrentDef() != jobs.DefMounted || mt.Current().Target != rider.ID {
		return jobs.Incompletable, true
	}

	switch d.stage {
	case stageApproach:
		if world.Distance(rider.Position, mount.Position) > 1 {
			if dest := rider.Path.DestinationOr(rider.Position); !rider.Path.Moving() || dest != mount.Position {
				rider.Path.StartPath(mount.Position)
			}
			return jobs.Ongoing, false
		}
		rider.Path.StopDead()
		d.stage = stageCooldown
		fallthrough

	case stageCooldown:
		if c.humanlike(rider) {
			if tick < rider.InteractReadyTick {
				return jobs.Ongoing, false
			}
			rider.InteractReadyTick = tick + interactTicks
		}
		d.stage = stageInteract

	case stageInteract:
		d.interact++
		if d.interact >= interactTicks {
			return jobs.Succeeded, true
		}
	}
	return jobs.Ongoing, false
}

func (d *MountingDriver) Finish(cond jobs.Condition) {
	if cond != jobs.Succeeded {
		return
	}
	c := d.c
	rider := c.World.Agent(d.t.Owner())
	mount := c.World.Agent(d.mountID)
	if rider == nil || mount == nil {
		return
	}
	mt := c.World.Tracker(mount.ID)
	if mt == nil || mt.CurrentDef() != jobs.DefMounted {
		return
	}
	c.Store.Mount(rider.ID, mount.ID)
	c.Store.Reserve(rider.ID, mount.ID)
	rider.DrawOffset = c.drawOffset(mount)
	c.info("mounted", "rider", rider.ID, "mount", mount.ID)
}
