// Package jobs provides the per-agent task scheduler: job definitions, the
// queue of pending jobs, the driver that executes the current job tick by
// tick, and the hook points other packages use to veto or rewrite
// scheduling decisions.
package jobs

import (
	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/world"
)

// Def names a kind of job.
type Def string

const (
	DefMount     Def = "mount"      // Rider walks to its mount and climbs on
	DefMounted   Def = "mounted"    // Mount waits for, then carries, a rider
	DefDismount  Def = "dismount"   // Rider walks to a dismount point
	DefGoto      Def = "goto"       // Walk to a cell
	DefWait      Def = "wait"       // Stand still for a while
	DefWander    Def = "wander"     // Stroll near the current position
	DefWork      Def = "work"       // Walk to a cell and work there
	DefHaul      Def = "haul"       // Carry something to a cell
	DefRest      Def = "rest"       // Lie down
	DefExitMap   Def = "exit_map"   // Walk off the map edge
	DefAttack    Def = "attack"     // Melee an adjacent target
	DefFollow    Def = "follow"     // Follow another agent
	DefVomit     Def = "vomit"      // Passive: sick
	DefSocial    Def = "social"     // Passive: chatting
	DefWaitStill Def = "wait_still" // Passive: waiting while keeping posture
)

// Job is a unit of work an agent can be assigned.
type Job struct {
	Def    Def
	Target agents.AgentID // Agent the job is about, if any
	Cell   world.HexCoord // Cell the job is about, if HasCell
	// HasCell distinguishes the origin from "no cell".
	HasCell bool
	Count   int // Job-specific duration or quantity
	Ordered bool
}

// NewJob creates a job about an agent.
func NewJob(def Def, target agents.AgentID) *Job {
	return &Job{Def: def, Target: target}
}

// NewCellJob creates a job about a cell.
func NewCellJob(def Def, cell world.HexCoord) *Job {
	return &Job{Def: def, Cell: cell, HasCell: true}
}

// Targets reports whether the job has a target of any kind.
func (j *Job) Targets() bool {
	return j != nil && (j.HasCell || j.Target != agents.NoAgent)
}

// ThinkResult is the outcome of one scheduling decision.
type ThinkResult struct {
	Job        *Job
	SourceNode string // Which think node produced the job
	Tag        string
	FromQueue  bool
}

// Condition is how a job ended.
type Condition uint8

const (
	Ongoing Condition = iota
	Succeeded
	Incompletable
	InterruptOptional
	InterruptForced
	Errored
)

var conditionNames = [...]string{
	Ongoing:           "ongoing",
	Succeeded:         "succeeded",
	Incompletable:     "incompletable",
	InterruptOptional: "interrupt_optional",
	InterruptForced:   "interrupt_forced",
	Errored:           "errored",
}

func (c Condition) String() string {
	if int(c) < len(conditionNames) {
		return conditionNames[c]
	}
	return "unknown"
}

// Driver executes a job. Tick is called once per simulation tick while the
// job is current and reports when the job is over. Finish is called exactly
// once when the job ends for any reason.
type Driver interface {
	Tick(tick uint64) (Condition, bool)
	Finish(cond Condition)
}

// Factory builds the driver for a job.
type Factory func(t *Tracker, job *Job) Driver

// Registry maps job definitions to driver factories.
type Registry struct {
	factories map[Def]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Def]Factory)}
}

// Register sets the factory for a definition, replacing any previous one.
func (r *Registry) Register(def Def, f Factory) {
	r.factories[def] = f
}

// Registered reports whether a definition has a factory.
func (r *Registry) Registered(def Def) bool {
	_, ok := r.factories[def]
	return ok
}

func (r *Registry) build(t *Tracker, job *Job) Driver {
	if f, ok := r.factories[job.Def]; ok {
		return f(t, job)
	}
	return unknownDriver{}
}

// unknownDriver ends any job without a registered driver.
type unknownDriver struct{}

func (unknownDriver) Tick(uint64) (Condition, bool) { return Errored, true }
func (unknownDriver) Finish(Condition)              {}
