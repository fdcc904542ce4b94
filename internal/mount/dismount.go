package mount

import (
	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/world"
)

// DismountDriver rides to a dismount point near where the rider was going
// and gets off there.
type DismountDriver struct {
	c       *Coordinator
	t       *jobs.Tracker
	mountID agents.AgentID
	target  world.HexCoord
	planned bool
	ticks   int
}

// dismountPatience bounds the walk to the dismount point. A rider that has
// not arrived by then gets off where it stands.
const dismountPatience = 600

func (c *Coordinator) newDismountDriver(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
	return &DismountDriver{c: c, t: t, mountID: job.Target}
}

func (d *DismountDriver) Tick(uint64) (jobs.Condition, bool) {
	c := d.c
	rider := c.World.Agent(d.t.Owner())
	mount := c.World.Agent(d.mountID)
	if rider == nil || !rider.Present() || mount == nil {
		return jobs.Incompletable, true
	}
	rec, ok := c.Store.Lookup(rider.ID)
	if !ok || rec.Mount() != mount.ID {
		return jobs.Incompletable, true
	}

	if !d.planned {
		dest := rider.Path.DestinationOr(rider.Position)
		if cell, ok := c.FindDismountPoint(mount, rider, dest); ok {
			d.target = cell
		} else {
			d.target = rider.Position
		}
		d.planned = true
	}

	d.ticks++
	if d.ticks > dismountPatience {
		d.target = rider.Position
	}
	if rider.Position != d.target {
		if rider.Path.DestinationOr(rider.Position) != d.target {
			rider.Path.StartPath(d.target)
		}
		return jobs.Ongoing, false
	}
	rider.Path.StopDead()
	c.Dismount(rider, mount, d.target)
	return jobs.Succeeded, true
}

func (d *DismountDriver) Finish(jobs.Condition) {}
