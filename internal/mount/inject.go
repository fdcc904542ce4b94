package mount

import (
	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/jobs"
)

// Method is how a mount or dismount job reaches the agent.
type Method uint8

const (
	// Instant performs the coupling on the spot without any walking.
	Instant Method = iota
	// Inject substitutes the job for the one the scheduler just chose and
	// queues the chosen job to run afterwards.
	Inject
	// Try orders the job, overriding whatever the agent was doing.
	Try
	// Think starts the job as an ordinary self-chosen task.
	Think
)

func (m Method) String() string {
	switch m {
	case Instant:
		return "instant"
	case Inject:
		return "inject"
	case Try:
		return "try"
	case Think:
		return "think"
	}
	return "unknown"
}

// GiveMountJob sends rider onto mount. A nil mount means the rider's
// reserved mount. For Inject the returned result replaces think; the
// interrupted job current is queued first so it resumes after mounting.
func (c *Coordinator) GiveMountJob(rider, mount *agents.Agent, method Method, think *jobs.ThinkResult, current *jobs.Job) (*jobs.ThinkResult, error) {
	if method == Inject && think == nil {
		return nil, ErrNothingToSubstitute
	}
	if mount == nil {
		if rec, ok := c.Store.Lookup(rider.ID); ok {
			mount = c.World.Agent(rec.ReservedMount())
		}
	}
	if mount == nil {
		return nil, ErrNoCandidate
	}
	defer c.Metrics.JobGiven(string(jobs.DefMount), method.String())

	job := jobs.NewJob(jobs.DefMount, mount.ID)
	switch method {
	case Instant:
		c.Store.Mount(rider.ID, mount.ID)
		c.Store.Reserve(rider.ID, mount.ID)
		if t := c.World.Tracker(mount.ID); t != nil && t.CurrentDef() != jobs.DefMounted {
			mount.Duty = agents.DutyDefend
			mount.Path.StopDead()
			t.TryTakeOrderedJob(&jobs.Job{Def: jobs.DefMounted, Target: rider.ID, Count: 1})
		}
		rider.DrawOffset = c.drawOffset(mount)
		c.info("mounted instantly", "rider", rider.ID, "mount", mount.ID)
		return nil, nil

	case Inject:
		if current != nil {
			c.World.Tracker(rider.ID).EnqueueFirst(current)
		}
		return &jobs.ThinkResult{Job: job, SourceNode: think.SourceNode, Tag: think.Tag}, nil

	case Try:
		if t := c.World.Tracker(mount.ID); t != nil {
			t.StopAll()
		}
		mount.Path.StopDead()
		c.World.Tracker(rider.ID).TryTakeOrderedJob(job)
		return nil, nil

	default:
		c.World.Tracker(rider.ID).StartJob(job, jobs.InterruptOptional)
		return nil, nil
	}
}

// GiveDismountJob makes rider get off mount, mirroring GiveMountJob. A nil
// mount means the one the rider currently sits on.
func (c *Coordinator) GiveDismountJob(rider, mount *agents.Agent, method Method, think *jobs.ThinkResult, current *jobs.Job) (*jobs.ThinkResult, error) {
	if method == Inject && think == nil {
		return nil, ErrNothingToSubstitute
	}
	if mount == nil {
		if rec, ok := c.Store.Lookup(rider.ID); ok {
			mount = c.World.Agent(rec.Mount())
		}
	}
	if mount == nil {
		return nil, ErrNoCandidate
	}
	defer c.Metrics.JobGiven(string(jobs.DefDismount), method.String())

	job := jobs.NewJob(jobs.DefDismount, mount.ID)
	switch method {
	case Instant:
		c.Dismount(rider, mount, rider.Position)
		return nil, nil

	case Inject:
		if current != nil {
			c.World.Tracker(rider.ID).EnqueueFirst(current)
		}
		return &jobs.ThinkResult{Job: job, SourceNode: think.SourceNode, Tag: think.Tag}, nil

	case Try:
		c.World.Tracker(rider.ID).TryTakeOrderedJob(job)
		return nil, nil

	default:
		c.World.Tracker(rider.ID).StartJob(job, jobs.InterruptOptional)
		return nil, nil
	}
}

// drawOffset is how far up a rider is drawn on the mount's species.
func (c *Coordinator) drawOffset(mount *agents.Agent) float64 {
	if sp := c.speciesOf(mount); sp != nil {
		return sp.DrawOffset
	}
	return 0
}
