package social

import "github.com/talgya/cavalry/internal/world"

// GroupID is a unique identifier for a travel group.
type GroupID = uint64

// Phase is the activity a travel group is currently engaged in.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseTravel
	PhaseExitMap
	PhaseExitMapEscortCarriers
	PhaseExitMapTraderFighting
	PhaseDefendPoint
	PhaseDefendTraderCaravan
	PhaseAssault
)

var phaseNames = [...]string{
	PhaseIdle:                  "idle",
	PhaseTravel:                "travel",
	PhaseExitMap:               "exit_map",
	PhaseExitMapEscortCarriers: "exit_map_escort_carriers",
	PhaseExitMapTraderFighting: "exit_map_trader_fighting",
	PhaseDefendPoint:           "defend_point",
	PhaseDefendTraderCaravan:   "defend_trader_caravan",
	PhaseAssault:               "assault",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Moving reports whether the group is on the road: travelling in, or
// leaving the map.
func (p Phase) Moving() bool {
	switch p {
	case PhaseTravel, PhaseExitMap, PhaseExitMapEscortCarriers, PhaseExitMapTraderFighting:
		return true
	}
	return false
}

// Guarding reports whether the group has settled on site to defend.
func (p Phase) Guarding() bool {
	return p == PhaseDefendPoint || p == PhaseDefendTraderCaravan
}

// Group is a set of agents coordinated toward a shared activity, such as a
// trade caravan or a raiding party.
type Group struct {
	ID        GroupID   `json:"id"`
	FactionID FactionID `json:"faction_id"`
	Phase     Phase     `json:"phase"`
	Members   []uint64  `json:"members"`

	Rally world.HexCoord `json:"rally"` // Where the group is headed or camps
	Since uint64         `json:"since"` // Tick the current phase began
}

// Add appends a member if it is not already present.
func (g *Group) Add(id uint64) {
	for _, m := range g.Members {
		if m == id {
			return
		}
	}
	g.Members = append(g.Members, id)
}

// Remove drops a member.
func (g *Group) Remove(id uint64) {
	for i, m := range g.Members {
		if m == id {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return
		}
	}
}
