package jobs

import (
	"github.com/talgya/cavalry/internal/agents"
)

// Hooks are the interception points a Tracker calls at fixed moments of
// its scheduling cycle.
type Hooks interface {
	// BeforeTaskStart may veto a job start by returning false.
	BeforeTaskStart(t *Tracker, job *Job) bool
	// BeforeForcedEnd may exempt the current job from a forced sweep.
	BeforeForcedEnd(t *Tracker) bool
	// AfterNextTaskChosen may rewrite the chosen result in place.
	AfterNextTaskChosen(t *Tracker, res *ThinkResult)
	// BeforeMasterDrafted may suppress the reaction to a master's draft.
	BeforeMasterDrafted(t *Tracker) bool
}

// NopHooks allows everything and rewrites nothing.
type NopHooks struct{}

func (NopHooks) BeforeTaskStart(*Tracker, *Job) bool        { return true }
func (NopHooks) BeforeForcedEnd(*Tracker) bool              { return true }
func (NopHooks) AfterNextTaskChosen(*Tracker, *ThinkResult) {}
func (NopHooks) BeforeMasterDrafted(*Tracker) bool          { return true }

// Thinker produces a job when the queue is empty.
type Thinker interface {
	Think(t *Tracker) ThinkResult
}

// ThinkFunc adapts a function to Thinker.
type ThinkFunc func(t *Tracker) ThinkResult

// Think calls f. A nil ThinkFunc thinks of nothing.
func (f ThinkFunc) Think(t *Tracker) ThinkResult {
	if f == nil {
		return ThinkResult{}
	}
	return f(t)
}

// Tracker is one agent's scheduler: its current job and driver plus the
// queue of pending jobs.
type Tracker struct {
	owner    agents.AgentID
	registry *Registry
	thinker  Thinker
	hooks    Hooks

	cur    *Job
	driver Driver
	queue  []*Job
}

// NewTracker creates a tracker for an agent. Nil thinker or hooks are
// replaced by no-op implementations.
func NewTracker(owner agents.AgentID, registry *Registry, thinker Thinker, hooks Hooks) *Tracker {
	if thinker == nil {
		thinker = ThinkFunc(nil)
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Tracker{owner: owner, registry: registry, thinker: thinker, hooks: hooks}
}

// Owner returns the agent this tracker schedules.
func (t *Tracker) Owner() agents.AgentID { return t.owner }

// Current returns the current job, or nil.
func (t *Tracker) Current() *Job { return t.cur }

// CurrentDef returns the current job's definition, or "" when idle.
func (t *Tracker) CurrentDef() Def {
	if t.cur == nil {
		return ""
	}
	return t.cur.Def
}

// Driver returns the current driver, or nil.
func (t *Tracker) Driver() Driver { return t.driver }

// PeekQueued returns the first pending job without removing it.
func (t *Tracker) PeekQueued() *Job {
	if len(t.queue) == 0 {
		return nil
	}
	return t.queue[0]
}

// Queue returns a copy of the pending jobs.
func (t *Tracker) Queue() []*Job {
	return append([]*Job(nil), t.queue...)
}

// EnqueueFirst puts a job at the front of the queue.
func (t *Tracker) EnqueueFirst(job *Job) {
	t.queue = append([]*Job{job}, t.queue...)
}

// EnqueueLast puts a job at the back of the queue.
func (t *Tracker) EnqueueLast(job *Job) {
	t.queue = append(t.queue, job)
}

// ClearQueue drops every pending job.
func (t *Tracker) ClearQueue() {
	t.queue = nil
}

// StopAll clears the queue and ends the current job without starting a
// new one.
func (t *Tracker) StopAll() {
	t.queue = nil
	t.EndCurrentJob(InterruptForced, false)
}

// StartJob makes job current, ending the previous job with cond. Returns
// false when a hook vetoed the start.
func (t *Tracker) StartJob(job *Job, cond Condition) bool {
	if job == nil {
		return false
	}
	if !t.hooks.BeforeTaskStart(t, job) {
		return false
	}
	if t.cur != nil {
		t.EndCurrentJob(cond, false)
	}
	t.cur = job
	t.driver = t.registry.build(t, job)
	return true
}

// TryTakeOrderedJob clears the queue and starts job, overriding anything in
// progress.
func (t *Tracker) TryTakeOrderedJob(job *Job) bool {
	job.Ordered = true
	t.queue = nil
	return t.StartJob(job, InterruptForced)
}

// EndCurrentJob ends the current job with cond. The job and driver are
// detached before the driver's Finish runs, so Finish sees an idle tracker.
// When startNew is set the next job is chosen immediately.
func (t *Tracker) EndCurrentJob(cond Condition, startNew bool) {
	drv := t.driver
	t.cur, t.driver = nil, nil
	if drv != nil {
		drv.Finish(cond)
	}
	if startNew {
		t.TryFindAndStartJob()
	}
}

// ForceEnd is the sweep used when a group transition ends everyone's job.
// Hooks may exempt the current job.
func (t *Tracker) ForceEnd(cond Condition) {
	if !t.hooks.BeforeForcedEnd(t) {
		return
	}
	t.EndCurrentJob(cond, true)
}

// DetermineNextJob pops the queue or asks the thinker, then lets the hooks
// rewrite the result.
func (t *Tracker) DetermineNextJob() ThinkResult {
	var res ThinkResult
	if len(t.queue) > 0 {
		res = ThinkResult{Job: t.queue[0], FromQueue: true, SourceNode: "queue"}
		t.queue = t.queue[1:]
	} else {
		res = t.thinker.Think(t)
	}
	t.hooks.AfterNextTaskChosen(t, &res)
	return res
}

// TryFindAndStartJob chooses and starts the next job.
func (t *Tracker) TryFindAndStartJob() bool {
	res := t.DetermineNextJob()
	if res.Job == nil {
		return false
	}
	return t.StartJob(res.Job, InterruptOptional)
}

// NotifyMasterDrafted makes an animal drop what it is doing to go to its
// master, unless a hook suppresses the reaction.
func (t *Tracker) NotifyMasterDrafted() bool {
	if !t.hooks.BeforeMasterDrafted(t) {
		return false
	}
	t.EndCurrentJob(InterruptOptional, true)
	return true
}

// Tick advances the current driver, starting a job first when idle.
func (t *Tracker) Tick(tick uint64) {
	if t.driver == nil {
		t.TryFindAndStartJob()
	}
	drv := t.driver
	if drv == nil {
		return
	}
	cond, done := drv.Tick(tick)
	// The driver may have been replaced from elsewhere during its tick.
	if done && t.driver == drv {
		t.EndCurrentJob(cond, true)
	}
}
