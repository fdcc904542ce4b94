package mount

import (
	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/world"
)

// attackCooldown is the number of ticks between a mount's attacks.
const attackCooldown = 60

// assistCombat lets a trained mount join its rider's fight. The mount goes
// for the rider's aim target, or failing that the target of the rider's
// melee job, and attacks in melee when close enough, otherwise at range.
func (c *Coordinator) assistCombat(mount, rider *agents.Agent, tick uint64) {
	if !mount.Trained {
		return
	}
	if mount.LastAttack != nil && tick < mount.LastAttack.Tick+attackCooldown {
		return
	}

	target := c.World.Agent(rider.AimTarget)
	if target == nil {
		if rt := c.World.Tracker(rider.ID); rt != nil && rt.CurrentDef() == jobs.DefAttack {
			target = c.World.Agent(rt.Current().Target)
		}
	}
	if target == nil || !target.Present() || target.Downed || !c.World.HostileTo(rider, target) {
		return
	}

	sp := c.speciesOf(mount)
	if sp == nil {
		return
	}
	reach := sp.MeleeRange
	if reach < 1 {
		reach = 1
	}
	dist := world.Distance(mount.Position, target.Position)
	switch {
	case dist <= reach:
		mount.LastAttack = &agents.Attack{Target: target.ID, Tick: tick}
	case sp.RangedRange > 0 && dist <= sp.RangedRange:
		mount.LastAttack = &agents.Attack{Target: target.ID, Ranged: true, Tick: tick}
	default:
		return
	}
	c.info("mount attacked", "mount", mount.ID, "target", target.ID, "ranged", mount.LastAttack.Ranged)
}
