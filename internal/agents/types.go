// Package agents provides the agent data model, the species and kind
// catalog, and the spawner that creates riders and their animals.
package agents

import (
	"github.com/talgya/cavalry/internal/world"
)

// AgentID is a unique identifier for an agent. Zero means "no agent".
type AgentID uint64

// NoAgent is the zero AgentID.
const NoAgent AgentID = 0

// Rotation is the facing of an agent on the grid.
type Rotation uint8

const (
	RotNorth Rotation = iota
	RotEast
	RotSouth
	RotWest
)

// Posture is whether an agent is upright.
type Posture uint8

const (
	PostureStanding Posture = iota
	PostureLying
	PostureLaying // Laid down by someone else (carried, in bed)
)

// MentalState is an uncontrolled state of mind.
type MentalState uint8

const (
	MentalNone MentalState = iota
	MentalPanicFlee
	MentalBerserk
	MentalWander
	MentalManhunter
)

// Duty is the role a group has assigned to an agent.
type Duty uint8

const (
	DutyNone Duty = iota
	DutyTravelOrWait
	DutyTravelOrLeave
	DutyGatherAnimals     // Forming a caravan: collecting animals
	DutyGatherDownedPawns // Forming a caravan: collecting the downed
	DutyDefend
	DutyAssault
)

// DrawState is the visual interpolation state a renderer reads.
type DrawState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SkillSet tracks an agent's capabilities, on a 0–20 scale.
type SkillSet struct {
	Handling int `json:"handling"` // Animal handling
	Melee    int `json:"melee"`
	Shooting int `json:"shooting"`
}

// Attack records the last attack an agent initiated.
type Attack struct {
	Target AgentID `json:"target"`
	Ranged bool    `json:"ranged"`
	Tick   uint64  `json:"tick"`
}

// Agent is any simulated actor, rider or mount.
type Agent struct {
	ID      AgentID `json:"id"`
	Name    string  `json:"name"`
	Kind    string  `json:"kind"`    // Kind definition id
	Species string  `json:"species"` // Species definition id

	// Location
	Position world.HexCoord `json:"position"`
	Rotation Rotation       `json:"rotation"`
	Draw     DrawState      `json:"draw"`
	Path     Pather         `json:"path"`

	// Condition
	Alive   bool        `json:"alive"`
	Spawned bool        `json:"spawned"` // Present on the simulated map
	Downed  bool        `json:"downed"`
	OnFire  bool        `json:"on_fire"`
	Posture Posture     `json:"posture"`
	Mental  MentalState `json:"mental"`

	// Allegiance
	FactionID *uint64 `json:"faction_id,omitempty"`
	GroupID   *uint64 `json:"group_id,omitempty"`   // Travel group while on the map
	CaravanID *uint64 `json:"caravan_id,omitempty"` // Travel group while off the map
	Colonist  bool    `json:"colonist"`             // Permanent member of the player's roster
	Prisoner  bool    `json:"prisoner"`
	Drafted   bool    `json:"drafted"` // Under direct command
	Duty      Duty    `json:"duty"`

	// Abilities
	Skills  SkillSet `json:"skills"`
	Trained bool     `json:"trained"` // Obedience: may be ridden and assists in combat
	Cargo   int      `json:"cargo"`   // Items carried in packs
	Roped   bool     `json:"roped"`   // Led on a rope by a handler

	// Combat
	AimTarget  AgentID `json:"aim_target,omitempty"`
	LastAttack *Attack `json:"last_attack,omitempty"`

	// Riding
	DrawOffset        float64 `json:"draw_offset"`
	InteractReadyTick uint64  `json:"interact_ready_tick"`

	BornTick uint64 `json:"born_tick"`
}

// Dead reports whether the agent has died.
func (a *Agent) Dead() bool {
	return !a.Alive
}

// Present reports whether the agent is alive and on the map.
func (a *Agent) Present() bool {
	return a != nil && a.Alive && a.Spawned
}

// InFaction reports whether the agent belongs to the faction.
func (a *Agent) InFaction(id uint64) bool {
	return a.FactionID != nil && *a.FactionID == id
}

// SameFaction reports whether two agents share a faction.
func SameFaction(a, b *Agent) bool {
	if a.FactionID == nil || b.FactionID == nil {
		return a.FactionID == nil && b.FactionID == nil
	}
	return *a.FactionID == *b.FactionID
}

// Pather tracks where an agent is walking. Cells holds the remaining route,
// the first of which is the next step.
type Pather struct {
	Destination *world.HexCoord  `json:"destination,omitempty"`
	Cells       []world.HexCoord `json:"cells,omitempty"`
}

// Moving reports whether the agent has somewhere to go.
func (p *Pather) Moving() bool {
	return p.Destination != nil
}

// StartPath sets a new destination and discards the old route.
func (p *Pather) StartPath(dest world.HexCoord) {
	d := dest
	p.Destination = &d
	p.Cells = nil
}

// StopDead halts movement immediately.
func (p *Pather) StopDead() {
	p.Destination = nil
	p.Cells = nil
}

// NextCell returns the next cell on the route, or pos when standing still
// or before a route has been planned.
func (p *Pather) NextCell(pos world.HexCoord) world.HexCoord {
	if len(p.Cells) > 0 {
		return p.Cells[0]
	}
	return pos
}

// DestinationOr returns the destination, or fallback when not moving.
func (p *Pather) DestinationOr(fallback world.HexCoord) world.HexCoord {
	if p.Destination != nil {
		return *p.Destination
	}
	return fallback
}
