// Agent spawning: raiding parties, travelling groups and their animals.
package agents

import (
	"math/rand"

	"github.com/talgya/cavalry/internal/world"
)

// Spawner creates agents for the simulation.
type Spawner struct {
	rng     *rand.Rand
	nextID  AgentID
	catalog *Catalog
}

// NewSpawner creates an agent spawner with the given seed.
func NewSpawner(seed int64, catalog *Catalog) *Spawner {
	return &Spawner{
		rng:     rand.New(rand.NewSource(seed + 300)),
		nextID:  1,
		catalog: catalog,
	}
}

// SetNextID sets the next agent ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id AgentID) {
	s.nextID = id
}

// NextID reports the ID the next spawned agent will receive.
func (s *Spawner) NextID() AgentID {
	return s.nextID
}

// Catalog returns the definitions the spawner draws from.
func (s *Spawner) Catalog() *Catalog {
	return s.catalog
}

// SpawnGroup creates count humanlike agents of a kind around a position.
// Agents are placed on standable cells near the position when the map
// allows it, otherwise on the position itself.
func (s *Spawner) SpawnGroup(m *world.Map, kindID string, count int, at world.HexCoord, factionID *uint64, tick uint64) []*Agent {
	kind := s.catalog.Kind(kindID)
	if kind == nil {
		return nil
	}
	out := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		pos := at
		if m != nil {
			if c, ok := m.TryFindRandomCellNear(at, 2, 8, s.rng, m.Standable); ok {
				pos = c
			}
		}
		out = append(out, s.spawnHumanlike(kind, pos, factionID, tick))
	}
	return out
}

func (s *Spawner) spawnHumanlike(kind *Kind, pos world.HexCoord, factionID *uint64, tick uint64) *Agent {
	a := s.newAgent(kind.Species, pos, factionID, tick)
	a.Kind = kind.ID
	a.Name = s.generateName()
	a.Skills = s.randomSkills()
	return a
}

// SpawnAnimal creates one animal of the species at a position. The animal
// is untrained; callers that intend it to be ridden set Trained.
func (s *Spawner) SpawnAnimal(speciesID string, pos world.HexCoord, factionID *uint64, tick uint64) *Agent {
	sp := s.catalog.Species(speciesID)
	if sp == nil {
		return nil
	}
	a := s.newAgent(sp.ID, pos, factionID, tick)
	a.Kind = sp.ID
	a.Name = sp.Name
	return a
}

func (s *Spawner) newAgent(species string, pos world.HexCoord, factionID *uint64, tick uint64) *Agent {
	id := s.nextID
	s.nextID++

	var fid *uint64
	if factionID != nil {
		v := *factionID
		fid = &v
	}
	return &Agent{
		ID:        id,
		Species:   species,
		Position:  pos,
		Rotation:  Rotation(s.rng.Intn(4)),
		Draw:      DrawState{X: float64(pos.Q), Y: float64(pos.R)},
		Alive:     true,
		FactionID: fid,
		BornTick:  tick,
	}
}

// randomSkills draws skills on the 0–20 scale, weighted toward the middle.
func (s *Spawner) randomSkills() SkillSet {
	return SkillSet{
		Handling: s.skillLevel(),
		Melee:    s.skillLevel(),
		Shooting: s.skillLevel(),
	}
}

func (s *Spawner) skillLevel() int {
	lvl := int(6.0 + s.rng.NormFloat64()*4.0)
	if lvl < 0 {
		lvl = 0
	}
	if lvl > 20 {
		lvl = 20
	}
	return lvl
}

func (s *Spawner) generateName() string {
	firsts := maleNames
	if s.rng.Float32() < 0.5 {
		firsts = femaleNames
	}
	first := firsts[s.rng.Intn(len(firsts))]
	last := lastNames[s.rng.Intn(len(lastNames))]
	return first + " " + last
}

// Name pools for procedural generation.
var maleNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Ivan", "Jasper", "Kael", "Leif", "Magnus", "Nils",
	"Oswin", "Per", "Quinn", "Rowan", "Stellan", "Theron", "Ulric",
}

var femaleNames = []string{
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Helene", "Iris", "Juno", "Kira", "Lena", "Mira", "Nessa",
	"Olwen", "Petra", "Runa", "Senna", "Thea", "Una", "Vera",
}

var lastNames = []string{
	"Voss", "Thornwood", "Blackwood", "Ashford", "Ironhand", "Dunmore",
	"Greenvale", "Stormcrow", "Frostborn", "Hearthstone", "Millward",
	"Copperfield", "Ravenmoor", "Silverdale", "Wolfsbane", "Stoneheart",
	"Deepwell", "Brightwater", "Oakenshield", "Redforge", "Windholm",
}
