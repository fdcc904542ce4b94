// Species and kind definitions, loaded from YAML.
package agents

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/talgya/cavalry/internal/world"
)

// Intelligence classifies a species' mind.
type Intelligence uint8

const (
	IntelligenceAnimal Intelligence = iota
	IntelligenceHumanlike
	IntelligenceMechanoid
)

// UnmarshalYAML reads an intelligence name.
func (i *Intelligence) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "animal", "":
		*i = IntelligenceAnimal
	case "humanlike":
		*i = IntelligenceHumanlike
	case "mechanoid":
		*i = IntelligenceMechanoid
	default:
		return fmt.Errorf("line %d: unknown intelligence %q", node.Line, node.Value)
	}
	return nil
}

// Species is a race definition shared by every agent of that species.
type Species struct {
	ID           string             `yaml:"id"`
	Name         string             `yaml:"name"`
	Intelligence Intelligence       `yaml:"intelligence"`
	Wild         bool               `yaml:"wild"`      // Lives in the wild rather than on farms
	Mountable    bool               `yaml:"mountable"` // Can carry a rider
	Wildness     float64            `yaml:"wildness"`  // 0 tame … 1 untameable
	CombatPower  float64            `yaml:"combat_power"`
	MarketValue  float64            `yaml:"market_value"`
	RidingSpeed  float64            `yaml:"riding_speed"` // Caravan speed factor when ridden
	Seasons      []string           `yaml:"seasons"`      // Empty means every season
	Commonality  map[string]float64 `yaml:"commonality"`  // Biome name → commonality
	DrawOffset   float64            `yaml:"draw_offset"`  // Rider's vertical offset when seated
	MeleeRange   int                `yaml:"melee_range"`
	RangedRange  int                `yaml:"ranged_range"` // Zero when the species has no ranged attack
}

// Humanlike reports whether the species can ride.
func (s *Species) Humanlike() bool {
	return s.Intelligence == IntelligenceHumanlike
}

// SeasonAcceptable reports whether the species tolerates the season.
func (s *Species) SeasonAcceptable(season world.Season) bool {
	if len(s.Seasons) == 0 {
		return true
	}
	for _, name := range s.Seasons {
		if v, ok := world.ParseSeason(name); ok && v == season {
			return true
		}
	}
	return false
}

// CommonalityIn returns how common the species is in a biome, zero when it
// does not live there.
func (s *Species) CommonalityIn(biome world.Terrain) float64 {
	for name, c := range s.Commonality {
		if t, ok := world.ParseTerrain(name); ok && t == biome {
			return c
		}
	}
	return 0
}

// WeightedMount is one entry in a kind's own mount table.
type WeightedMount struct {
	Species string `yaml:"species"`
	Weight  int    `yaml:"weight"`
}

// CustomMounts overrides the global mount logic for a kind.
type CustomMounts struct {
	Chance int             `yaml:"chance"`
	Mounts []WeightedMount `yaml:"mounts"`
}

// Kind is a role-specific flavor of a species (raider, trader, slave).
type Kind struct {
	ID           string        `yaml:"id"`
	Species      string        `yaml:"species"`
	Slave        bool          `yaml:"slave"`
	CustomMounts *CustomMounts `yaml:"custom_mounts"` // Optional extension record
}

// Catalog indexes species and kinds by definition id.
type Catalog struct {
	species map[string]*Species
	kinds   map[string]*Kind
}

type catalogFile struct {
	Species []*Species `yaml:"species"`
	Kinds   []*Kind    `yaml:"kinds"`
}

// NewCatalog builds a catalog from definitions.
func NewCatalog(species []*Species, kinds []*Kind) (*Catalog, error) {
	c := &Catalog{
		species: make(map[string]*Species, len(species)),
		kinds:   make(map[string]*Kind, len(kinds)),
	}
	for _, s := range species {
		if s.ID == "" {
			return nil, fmt.Errorf("species without id")
		}
		if _, dup := c.species[s.ID]; dup {
			return nil, fmt.Errorf("duplicate species %q", s.ID)
		}
		for name := range s.Commonality {
			if _, ok := world.ParseTerrain(name); !ok {
				return nil, fmt.Errorf("species %q: unknown biome %q", s.ID, name)
			}
		}
		for _, name := range s.Seasons {
			if _, ok := world.ParseSeason(name); !ok {
				return nil, fmt.Errorf("species %q: unknown season %q", s.ID, name)
			}
		}
		c.species[s.ID] = s
	}
	for _, k := range kinds {
		if _, ok := c.species[k.Species]; !ok {
			return nil, fmt.Errorf("kind %q: unknown species %q", k.ID, k.Species)
		}
		if k.CustomMounts != nil {
			for _, m := range k.CustomMounts.Mounts {
				if _, ok := c.species[m.Species]; !ok {
					return nil, fmt.Errorf("kind %q: unknown mount species %q", k.ID, m.Species)
				}
			}
		}
		c.kinds[k.ID] = k
	}
	return c, nil
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return NewCatalog(f.Species, f.Kinds)
}

// LoadCatalog reads a YAML catalog from disk.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(raw)
}

// Species returns a species definition, or nil.
func (c *Catalog) Species(id string) *Species {
	return c.species[id]
}

// Kind returns a kind definition, or nil.
func (c *Catalog) Kind(id string) *Kind {
	return c.kinds[id]
}

// SpeciesOf returns the species of an agent, or nil.
func (c *Catalog) SpeciesOf(a *Agent) *Species {
	if a == nil {
		return nil
	}
	return c.species[a.Species]
}

// AllSpecies returns every species sorted by id.
func (c *Catalog) AllSpecies() []*Species {
	out := make([]*Species, 0, len(c.species))
	for _, s := range c.species {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WildAnimals returns every wild animal species, sorted by id.
func (c *Catalog) WildAnimals() []*Species {
	return c.filter(func(s *Species) bool {
		return s.Intelligence == IntelligenceAnimal && s.Wild
	})
}

// DomesticAnimals returns every farm animal species, sorted by id.
func (c *Catalog) DomesticAnimals() []*Species {
	return c.filter(func(s *Species) bool {
		return s.Intelligence == IntelligenceAnimal && !s.Wild
	})
}

// BiomeAnimals returns the wild species native to a biome, sorted by id.
func (c *Catalog) BiomeAnimals(biome world.Terrain) []*Species {
	return c.filter(func(s *Species) bool {
		return s.Intelligence == IntelligenceAnimal && s.Wild && s.CommonalityIn(biome) > 0
	})
}

// AverageCommonality is the mean commonality of the biome's wild species,
// zero when none live there.
func (c *Catalog) AverageCommonality(biome world.Terrain) float64 {
	animals := c.BiomeAnimals(biome)
	if len(animals) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range animals {
		sum += s.CommonalityIn(biome)
	}
	return sum / float64(len(animals))
}

func (c *Catalog) filter(keep func(*Species) bool) []*Species {
	var out []*Species
	for _, s := range c.AllSpecies() {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
