// Package mount couples riders to their mounts. It decides which mounts a
// spawned party rides in on, hands out the jobs that make an agent climb on
// or off, and runs the ride itself tick by tick until something ends it.
package mount

import (
	"errors"
	"log/slog"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/config"
	"github.com/talgya/cavalry/internal/entropy"
	"github.com/talgya/cavalry/internal/extdata"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/metrics"
	"github.com/talgya/cavalry/internal/social"
	"github.com/talgya/cavalry/internal/world"
)

var (
	// ErrIneligible means the spawning faction never rides.
	ErrIneligible = errors.New("spawn context is not eligible for mounts")
	// ErrNoCandidate means a rider passed every roll but no species fit.
	ErrNoCandidate = errors.New("no suitable mount species")
	// ErrNothingToSubstitute means Inject was used outside a scheduling
	// decision.
	ErrNothingToSubstitute = errors.New("inject needs a think result to substitute")
	// ErrNotWaiting means the mount is not waiting for a rider.
	ErrNotWaiting = errors.New("mount is not waiting for a rider")
)

// World is the slice of the host simulation the riding logic reads and
// drives.
type World interface {
	Agent(id agents.AgentID) *agents.Agent
	Tracker(id agents.AgentID) *jobs.Tracker
	Map() *world.Map
	Faction(id social.FactionID) *social.Faction
	PlayerFaction() *social.Faction
	GroupOf(a *agents.Agent) *social.Group
	// HostileTo reports whether a treats b as an enemy.
	HostileTo(a, b *agents.Agent) bool
	// Occupied reports whether any spawned agent other than those in
	// ignore stands on the cell.
	Occupied(cell world.HexCoord, ignore ...agents.AgentID) bool
	// Spawn places a new agent on the map and gives it a tracker.
	Spawn(a *agents.Agent)
	// ExitMap removes an agent from the map through the given edge cell.
	ExitMap(a *agents.Agent, at world.HexCoord)
}

// Coordinator owns the riding rules and the shared riding records.
type Coordinator struct {
	World    World
	Store    *extdata.Store
	Catalog  *agents.Catalog
	Spawner  *agents.Spawner
	Settings *config.Settings
	Metrics  *metrics.Recorder
	Rand     entropy.Source
}

// Register installs the riding job drivers.
func (c *Coordinator) Register(reg *jobs.Registry) {
	reg.Register(jobs.DefMount, func(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
		return c.newMountingDriver(t, job)
	})
	reg.Register(jobs.DefMounted, func(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
		return c.newMountedDriver(t, job)
	})
	reg.Register(jobs.DefDismount, func(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
		return c.newDismountDriver(t, job)
	})
}

// Hooks returns the tracker hooks enforcing the riding rules.
func (c *Coordinator) Hooks() jobs.Hooks {
	return &Hooks{c: c}
}

// info logs only when riding diagnostics are switched on.
func (c *Coordinator) info(msg string, args ...any) {
	if c.Settings != nil && c.Settings.Logging {
		slog.Info(msg, args...)
	}
}

func (c *Coordinator) warn(msg string, args ...any) {
	if c.Settings != nil && c.Settings.Logging {
		slog.Warn(msg, args...)
	}
}

func (c *Coordinator) speciesOf(a *agents.Agent) *agents.Species {
	if c.Catalog == nil {
		return nil
	}
	return c.Catalog.SpeciesOf(a)
}

func (c *Coordinator) humanlike(a *agents.Agent) bool {
	sp := c.speciesOf(a)
	return sp != nil && sp.Humanlike()
}

func (c *Coordinator) factionOf(a *agents.Agent) *social.Faction {
	if a == nil || a.FactionID == nil {
		return nil
	}
	return c.World.Faction(*a.FactionID)
}

// hostileToPlayer reports whether an agent's faction is at war with the
// player.
func (c *Coordinator) hostileToPlayer(a *agents.Agent) bool {
	return c.factionOf(a).HostileTo(c.World.PlayerFaction())
}

// Reason is why a ride ended. Values are ordered by check priority.
type Reason uint8

const (
	None Reason = iota
	Interrupted
	BadState
	LeftArea
	NotPresent
	WrongMount
	BadTask
	NoParkingSpot
	Parking
)

var reasonNames = [...]string{
	None:          "None",
	Interrupted:   "Interrupted",
	BadState:      "BadState",
	LeftArea:      "LeftArea",
	NotPresent:    "NotPresent",
	WrongMount:    "WrongMount",
	BadTask:       "BadTask",
	NoParkingSpot: "NoParkingSpot",
	Parking:       "Parking",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "Unknown"
}

// Mountability says whether a rider may climb onto an animal, and if not,
// why.
type Mountability uint8

const (
	Mountable Mountability = iota
	NoAnimal
	NotMountableSpecies
	Dead
	Downed
	NotSpawned
	MentalState
	AlreadyMounted
	AlreadyRidden
	ReservedByOther
	WrongFaction
	Unreachable
)

var mountabilityNames = [...]string{
	Mountable:           "mountable",
	NoAnimal:            "no_animal",
	NotMountableSpecies: "not_mountable_species",
	Dead:                "dead",
	Downed:              "downed",
	NotSpawned:          "not_spawned",
	MentalState:         "mental_state",
	AlreadyMounted:      "already_mounted",
	AlreadyRidden:       "already_ridden",
	ReservedByOther:     "reserved_by_other",
	WrongFaction:        "wrong_faction",
	Unreachable:         "unreachable",
}

func (m Mountability) String() string {
	if int(m) < len(mountabilityNames) {
		return mountabilityNames[m]
	}
	return "unknown"
}

// IsMountable checks whether rider may mount the animal right now.
func (c *Coordinator) IsMountable(mount, rider *agents.Agent) Mountability {
	if mount == nil {
		return NoAnimal
	}
	sp := c.speciesOf(mount)
	if sp == nil || sp.Intelligence != agents.IntelligenceAnimal || !sp.Mountable {
		return NotMountableSpecies
	}
	switch {
	case mount.Dead():
		return Dead
	case mount.Downed:
		return Downed
	case !mount.Spawned:
		return NotSpawned
	case mount.Mental != agents.MentalNone:
		return MentalState
	}
	if rec, ok := c.Store.Lookup(rider.ID); ok && rec.Mounted() {
		return AlreadyMounted
	}
	if rec, ok := c.Store.Lookup(mount.ID); ok {
		if rec.Rider() != agents.NoAgent && rec.Rider() != rider.ID {
			return AlreadyRidden
		}
		if by := rec.ReservedBy(); by != agents.NoAgent && by != rider.ID {
			if owner := c.World.Agent(by); owner != nil && !owner.Dead() {
				return ReservedByOther
			}
		}
	}
	if !agents.SameFaction(mount, rider) {
		return WrongFaction
	}
	if !c.World.Map().CanReach(rider.Position, mount.Position) {
		return Unreachable
	}
	return Mountable
}

// IsMountedAnimal reports whether the tracker belongs to a mount that is
// currently carrying its rider.
func IsMountedAnimal(t *jobs.Tracker) bool {
	if t == nil {
		return false
	}
	d, ok := t.Driver().(*MountedDriver)
	return ok && d.Riding()
}

// Parking reports whether the rider's mount is steering it to a dismount
// point. Until the ride ends there the rider's own job must not re-route it.
func (c *Coordinator) Parking(riderID agents.AgentID) bool {
	rec, ok := c.Store.Lookup(riderID)
	if !ok || !rec.Mounted() {
		return false
	}
	t := c.World.Tracker(rec.Mount())
	if t == nil {
		return false
	}
	d, ok := t.Driver().(*MountedDriver)
	return ok && d.Riding() && d.session.Rider == riderID && d.session.IsParking
}

// LeaveRider makes a mount stop waiting for a rider that has not arrived.
func (c *Coordinator) LeaveRider(mountID agents.AgentID) error {
	t := c.World.Tracker(mountID)
	if t == nil {
		return ErrNotWaiting
	}
	d, ok := t.Driver().(*MountedDriver)
	if !ok || !d.Waiting() {
		return ErrNotWaiting
	}
	c.info("mount left waiting for rider", "mount", mountID, "rider", d.session.Rider)
	t.EndCurrentJob(jobs.InterruptForced, true)
	return nil
}

// Dismount is the single point where a live coupling is broken. The rider
// loses its seat, the mount is left at the given cell when it can stand
// there (otherwise next to the rider) and a mount still running the ride
// for this rider has its job ended. Reservations are kept.
func (c *Coordinator) Dismount(rider, mount *agents.Agent, at world.HexCoord) {
	if rider != nil {
		c.Store.Dismount(rider.ID)
		rider.DrawOffset = 0
	}
	if mount == nil {
		return
	}
	// A mount that already left the map keeps the edge cell it left by.
	if mount.Spawned {
		if rider != nil && !c.World.Map().Standable(at) {
			at = rider.Position
		}
		mount.Position = at
	}
	mount.Path.StopDead()
	if t := c.World.Tracker(mount.ID); t != nil {
		if d, ok := t.Driver().(*MountedDriver); ok && (rider == nil || d.session.Rider == rider.ID) {
			t.EndCurrentJob(jobs.InterruptForced, true)
		}
	}
	riderID := agents.NoAgent
	if rider != nil {
		riderID = rider.ID
	}
	c.info("dismounted", "rider", riderID, "mount", mount.ID, "at", at)
}
