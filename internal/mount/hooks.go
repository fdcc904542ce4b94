package mount

import (
	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/extdata"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/world"
)

// Hooks plugs the riding rules into every agent's tracker.
type Hooks struct {
	c *Coordinator
}

// BeforeTaskStart stops a mount from picking up its own work mid-ride.
func (h *Hooks) BeforeTaskStart(t *jobs.Tracker, _ *jobs.Job) bool {
	return !IsMountedAnimal(t)
}

// BeforeForcedEnd keeps group-wide job sweeps away from carrying mounts.
func (h *Hooks) BeforeForcedEnd(t *jobs.Tracker) bool {
	return !IsMountedAnimal(t)
}

// BeforeMasterDrafted keeps a mount under its rider when the master is
// drafted.
func (h *Hooks) BeforeMasterDrafted(t *jobs.Tracker) bool {
	return t.CurrentDef() != jobs.DefMounted
}

// AfterNextTaskChosen rewrites scheduling decisions so riders claim, keep
// and leave their mounts at the right moments.
func (h *Hooks) AfterNextTaskChosen(t *jobs.Tracker, res *jobs.ThinkResult) {
	c := h.c
	a := c.World.Agent(t.Owner())
	if a == nil || a.FactionID == nil {
		return
	}
	player := c.inPlayerFaction(a)

	if c.Settings.CaravansEnabled && !player && a.Roped {
		h.checkRope(a)
	}
	if !c.humanlike(a) {
		return
	}

	rec, _ := c.Store.Lookup(a.ID)
	mounted := rec != nil && rec.Mounted()
	switch {
	case mounted && a.Colonist:
		h.checkCoupling(a, rec)
	case !mounted && c.hostileToPlayer(a) && !a.Downed && !a.Prisoner && !a.OnFire:
		h.claimMount(t, a, rec, res)
	case c.Settings.RideAndRollEnabled && player:
		h.autoMount(t, a, rec, res)
	}

	if c.Settings.CaravansEnabled && !player {
		h.visit(t, a, res)
	}
}

// checkRope lets go of an animal whose handler is gone.
func (h *Hooks) checkRope(a *agents.Agent) {
	rec, ok := h.c.Store.Lookup(a.ID)
	if !ok {
		a.Roped = false
		return
	}
	owner := h.c.World.Agent(rec.ReservedBy())
	if owner == nil || owner.Dead() || !owner.Spawned {
		a.Roped = false
	}
}

// checkCoupling forces a colonist off a mount that no longer carries it.
func (h *Hooks) checkCoupling(a *agents.Agent, rec *extdata.Record) {
	c := h.c
	mount := c.World.Agent(rec.Mount())
	if mount != nil {
		if mt := c.World.Tracker(mount.ID); mt != nil {
			if d, ok := mt.Driver().(*MountedDriver); ok && d.session.Rider == a.ID {
				return
			}
		}
	}
	c.warn("stale coupling, forcing dismount", "rider", a.ID, "mount", rec.Mount())
	c.Dismount(a, mount, a.Position)
	c.Store.Release(a.ID)
}

// claimMount sends a hostile rider back to its reserved mount.
func (h *Hooks) claimMount(t *jobs.Tracker, a *agents.Agent, rec *extdata.Record, res *jobs.ThinkResult) {
	if rec == nil || rec.ReservedMount() == agents.NoAgent {
		return
	}
	mount := h.c.World.Agent(rec.ReservedMount())
	if h.c.IsMountable(mount, a) != Mountable {
		return
	}
	if pendingDef(t, res, jobs.DefMount) {
		return
	}
	h.inject(a, mount, res)
}

// autoMount puts a player rider on its mount before a long walk.
func (h *Hooks) autoMount(t *jobs.Tracker, a *agents.Agent, rec *extdata.Record, res *jobs.ThinkResult) {
	c := h.c
	job := res.Job
	if job == nil || !job.HasCell || rec == nil || rec.Mounted() || rec.ReservedMount() == agents.NoAgent {
		return
	}
	if !c.Settings.JobAllowed(string(job.Def)) {
		return
	}
	if world.Distance(a.Position, job.Cell) < c.Settings.AutoMountDistance {
		return
	}
	if noMount, _ := c.World.Map().LookupNamedZones(); noMount.Contains(job.Cell) {
		return
	}
	if pendingDef(t, res, jobs.DefMount) {
		return
	}
	mount := c.World.Agent(rec.ReservedMount())
	if c.IsMountable(mount, a) != Mountable {
		return
	}
	h.inject(a, mount, res)
}

// visit runs the travelling-group rules for a non-player visitor.
func (h *Hooks) visit(t *jobs.Tracker, a *agents.Agent, res *jobs.ThinkResult) {
	c := h.c
	g := c.World.GroupOf(a)
	if g == nil || c.hostileToPlayer(a) || a.Prisoner {
		return
	}
	if !res.Job.Targets() || pendingDef(t, res, jobs.DefMount) || pendingDef(t, res, jobs.DefDismount) {
		return
	}

	rec, _ := c.Store.Lookup(a.ID)
	mounted := rec != nil && rec.Mounted()
	switch {
	case g.Phase.Moving():
		if mounted || rec == nil || rec.ReservedMount() == agents.NoAgent {
			return
		}
		mount := c.World.Agent(rec.ReservedMount())
		if c.IsMountable(mount, a) != Mountable {
			return
		}
		h.inject(a, mount, res)

	case g.Phase.Guarding():
		if !mounted {
			return
		}
		mount := c.World.Agent(rec.Mount())
		if mount != nil && mount.Cargo > 0 {
			c.Dismount(a, mount, a.Position)
			return
		}
		if out, err := c.GiveDismountJob(a, mount, Inject, res, res.Job); err == nil && out != nil {
			*res = *out
		}
	}
}

func (h *Hooks) inject(a, mount *agents.Agent, res *jobs.ThinkResult) {
	out, err := h.c.GiveMountJob(a, mount, Inject, res, res.Job)
	if err != nil || out == nil {
		return
	}
	*res = *out
}

// pendingDef reports whether the queue head or the chosen job is def.
func pendingDef(t *jobs.Tracker, res *jobs.ThinkResult, def jobs.Def) bool {
	if q := t.PeekQueued(); q != nil && q.Def == def {
		return true
	}
	return res.Job != nil && res.Job.Def == def
}
