package mount

import (
	"github.com/google/uuid"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/extdata"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/world"
)

const (
	// checkInterval is how many ticks pass between the expensive dismount
	// checks.
	checkInterval = 30
	// commandedNearDistance is how close a drafted rider must be to its
	// destination before a disallowed job forces it off.
	commandedNearDistance = 8
	// edgeGrace is the ring width along the map edge where an arriving
	// group keeps riding before it has picked a job.
	edgeGrace = 10
)

// waitableDefs are the rider jobs a waiting mount tolerates before the
// coupling exists.
var waitableDefs = map[jobs.Def]bool{
	jobs.DefMount:     true,
	jobs.DefVomit:     true,
	jobs.DefWaitStill: true,
	jobs.DefSocial:    true,
	jobs.DefWait:      true,
}

// travelDuties are the group roles that keep a rider on its reserved mount.
var travelDuties = map[agents.Duty]bool{
	agents.DutyTravelOrWait:      true,
	agents.DutyTravelOrLeave:     true,
	agents.DutyGatherAnimals:     true,
	agents.DutyGatherDownedPawns: true,
}

// RideSession is the per-ride state a mount carries while it waits for and
// then carries its rider.
type RideSession struct {
	ID        uuid.UUID      `json:"id"`
	Rider     agents.AgentID `json:"rider"`
	RiderData extdata.Entry  `json:"rider_data"` // Rider's record when the ride began
	IsTrained bool           `json:"is_trained"`

	Interrupted bool `json:"interrupted"`
	IsParking   bool `json:"is_parking"`

	DismountTarget           world.HexCoord  `json:"dismount_target"`
	RiderOriginalDestination *world.HexCoord `json:"rider_original_destination,omitempty"`

	Ticker int    `json:"ticker"`
	Reason Reason `json:"reason"`

	StartTick uint64 `json:"start_tick"`
}

type rideState uint8

const (
	stateWaiting rideState = iota
	stateRiding
	stateEnded
)

// MountedDriver runs the mount's side of a ride.
type MountedDriver struct {
	c       *Coordinator
	t       *jobs.Tracker
	session RideSession
	state   rideState
}

func (c *Coordinator) newMountedDriver(t *jobs.Tracker, job *jobs.Job) jobs.Driver {
	d := &MountedDriver{
		c: c,
		t: t,
		session: RideSession{
			ID:     uuid.New(),
			Rider:  job.Target,
			Ticker: checkInterval,
		},
	}
	if m := c.World.Agent(t.Owner()); m != nil {
		d.session.IsTrained = m.Trained
	}
	return d
}

// Riding reports whether the rider is on board.
func (d *MountedDriver) Riding() bool { return d.state == stateRiding }

// Waiting reports whether the mount is still waiting for its rider.
func (d *MountedDriver) Waiting() bool { return d.state == stateWaiting }

// Session returns a copy of the ride state.
func (d *MountedDriver) Session() RideSession { return d.session }

// Interrupt makes the ride end on its next tick.
func (d *MountedDriver) Interrupt() { d.session.Interrupted = true }

func (d *MountedDriver) Tick(tick uint64) (jobs.Condition, bool) {
	mount := d.c.World.Agent(d.t.Owner())
	if mount == nil || !mount.Present() {
		d.session.Reason = Interrupted
		return jobs.Incompletable, true
	}
	switch d.state {
	case stateWaiting:
		return d.tickWaiting(mount, tick)
	case stateRiding:
		return d.tickRiding(mount, tick)
	}
	return jobs.Succeeded, true
}

func (d *MountedDriver) tickWaiting(mount *agents.Agent, tick uint64) (jobs.Condition, bool) {
	c := d.c
	rider := c.World.Agent(d.session.Rider)
	if rider == nil || rider.Dead() || !rider.Spawned || rider.Downed || rider.Mental != agents.MentalNone {
		d.session.Interrupted = true
		d.session.Reason = Interrupted
		return jobs.Incompletable, true
	}

	if rec, ok := c.Store.Lookup(rider.ID); ok && rec.Mount() == mount.ID {
		d.state = stateRiding
		d.session.RiderData = rec.Entry()
		d.session.StartTick = tick
		d.session.IsTrained = mount.Trained
		c.Metrics.RideStarted()
		c.info("ride started", "session", d.session.ID, "rider", rider.ID, "mount", mount.ID)
		return d.tickRiding(mount, tick)
	}

	def := jobs.Def("")
	if rt := c.World.Tracker(rider.ID); rt != nil {
		def = rt.CurrentDef()
	}
	if !waitableDefs[def] {
		c.info("rider abandoned its mount", "rider", rider.ID, "mount", mount.ID, "job", def)
		d.session.Interrupted = true
		d.session.Reason = Interrupted
		return jobs.Incompletable, true
	}
	mount.Path.StopDead()
	return jobs.Ongoing, false
}

func (d *MountedDriver) tickRiding(mount *agents.Agent, tick uint64) (jobs.Condition, bool) {
	rider := d.c.World.Agent(d.session.Rider)
	if reason := d.c.ShouldDismount(mount, rider, &d.session); reason != None {
		d.session.Reason = reason
		return jobs.Succeeded, true
	}
	mount.Position = rider.Position
	mount.Rotation = rider.Rotation
	mount.Draw = rider.Draw
	mount.Path.StopDead()
	if d.session.IsTrained {
		d.c.assistCombat(mount, rider, tick)
	}
	return jobs.Ongoing, false
}

func (d *MountedDriver) Finish(cond jobs.Condition) {
	c := d.c
	wasRiding := d.state == stateRiding
	d.state = stateEnded

	reason := d.session.Reason
	if reason == None && cond != jobs.Succeeded {
		reason = Interrupted
	}
	c.Metrics.RideEnded(reason.String(), wasRiding)

	mount := c.World.Agent(d.t.Owner())
	rider := c.World.Agent(d.session.Rider)
	if reason == NotPresent {
		c.info("rider left the map, ride kept", "session", d.session.ID, "rider", d.session.Rider)
		return
	}
	if mount == nil || rider == nil {
		return
	}
	rec, ok := c.Store.Lookup(rider.ID)
	if !ok || rec.Mount() != mount.ID {
		return
	}
	at := rider.Position
	if d.session.IsParking {
		at = d.session.DismountTarget
	}
	c.info("ride ended", "session", d.session.ID, "rider", rider.ID, "mount", mount.ID, "reason", reason)
	c.Dismount(rider, mount, at)
}

// ShouldDismount decides whether a ride in progress must end. Checks run in
// a fixed order and the first that fires wins. Checks after the ticker only
// run every checkInterval ticks.
func (c *Coordinator) ShouldDismount(mount, rider *agents.Agent, s *RideSession) Reason {
	if s.Interrupted || rider == nil {
		return Interrupted
	}
	rec, ok := c.Store.Lookup(rider.ID)
	if !ok || rec.Mount() != mount.ID || s.RiderData.ID != rider.ID {
		return Interrupted
	}
	if mrec, ok := c.Store.Lookup(mount.ID); !ok || mrec.Rider() != rider.ID {
		return Interrupted
	}

	if s.IsParking && (rider.Position == s.DismountTarget || rider.Path.NextCell(rider.Position) == s.DismountTarget) {
		if s.RiderOriginalDestination != nil {
			rider.Path.StartPath(*s.RiderOriginalDestination)
		}
		return Parking
	}

	s.Ticker--
	if s.Ticker > 0 {
		return None
	}
	s.Ticker = checkInterval

	if badState(mount, rider) {
		return BadState
	}

	if !rider.Spawned {
		if rider.Colonist && rider.CaravanID == nil {
			return NotPresent
		}
		c.World.ExitMap(mount, c.World.Map().ClosestEdge(mount.Position))
		return LeftArea
	}

	m := c.World.Map()
	st := c.Settings
	def := jobs.Def("")
	if rt := c.World.Tracker(rider.ID); rt != nil {
		def = rt.CurrentDef()
	}
	allowed := def == "" || st.JobAllowed(string(def))
	dest := rider.Path.DestinationOr(rider.Position)
	noMount, _ := m.LookupNamedZones()
	forbidden := noMount.Contains(dest)

	if !rider.Drafted {
		if !s.IsParking && st.RideAndRollEnabled && (!allowed || forbidden) {
			cell, ok := c.FindDismountPoint(mount, rider, dest)
			if !ok {
				return NoParkingSpot
			}
			s.IsParking = true
			s.DismountTarget = cell
			if rider.Path.Moving() {
				d := dest
				s.RiderOriginalDestination = &d
			}
			rider.Path.StartPath(cell)
			c.info("parking mount", "rider", rider.ID, "mount", mount.ID, "at", cell)
		}
	} else {
		if !allowed && world.Distance(rider.Position, dest) < commandedNearDistance {
			return BadTask
		}
		if !c.inPlayerFaction(mount) {
			return None
		}
	}

	if st.CaravansEnabled {
		if travelDuties[rider.Duty] {
			if rec.ReservedMount() == mount.ID {
				return None
			}
			return WrongMount
		}
		if m.CloseToEdge(rider.Position, edgeGrace) {
			return None
		}
	}
	return None
}

// badState reports whether either party is in no condition to ride.
func badState(mount, rider *agents.Agent) bool {
	for _, a := range [...]*agents.Agent{mount, rider} {
		if a.Downed || a.Dead() || a.OnFire {
			return true
		}
	}
	if mount.Posture != agents.PostureStanding || mount.Mental != agents.MentalNone {
		return true
	}
	return rider.Mental != agents.MentalNone && rider.Mental != agents.MentalPanicFlee
}

func (c *Coordinator) inPlayerFaction(a *agents.Agent) bool {
	p := c.World.PlayerFaction()
	return p != nil && a.InFaction(p.ID)
}
