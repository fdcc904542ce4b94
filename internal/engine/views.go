package engine

import (
	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/extdata"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/mount"
)

// RideView is one mount's ride as the API reports it.
type RideView struct {
	Mount   agents.AgentID    `json:"mount"`
	State   string            `json:"state"` // "waiting" or "riding"
	Session mount.RideSession `json:"session"`
}

// RideViews lists every mount currently waiting for or carrying a rider.
func (s *Simulation) RideViews() []RideView {
	var out []RideView
	for _, a := range s.Agents {
		t := s.trackers[a.ID]
		if t == nil {
			continue
		}
		d, ok := t.Driver().(*mount.MountedDriver)
		if !ok {
			continue
		}
		state := "waiting"
		if d.Riding() {
			state = "riding"
		}
		out = append(out, RideView{Mount: a.ID, State: state, Session: d.Session()})
	}
	return out
}

// AgentView is an agent with its scheduler and riding state.
type AgentView struct {
	Agent  *agents.Agent  `json:"agent"`
	Job    jobs.Def       `json:"job"`
	Queued int            `json:"queued"`
	Riding *extdata.Entry `json:"riding,omitempty"`
}

// AgentDetail returns the view of one agent, or false when unknown.
func (s *Simulation) AgentDetail(id agents.AgentID) (AgentView, bool) {
	a := s.index[id]
	if a == nil {
		return AgentView{}, false
	}
	v := AgentView{Agent: a}
	if t := s.trackers[id]; t != nil {
		v.Job = t.CurrentDef()
		v.Queued = len(t.Queue())
	}
	if rec, ok := s.Store.Lookup(id); ok {
		e := rec.Entry()
		v.Riding = &e
	}
	return v, true
}
