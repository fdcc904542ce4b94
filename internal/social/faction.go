// Package social provides factions and the travel groups agents move in.
package social

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FactionID is a unique identifier for a faction.
type FactionID = uint64

// TechLevel is how advanced a faction's equipment is.
type TechLevel uint8

const (
	TechAnimal TechLevel = iota
	TechNeolithic
	TechMedieval
	TechIndustrial
	TechSpacer
	TechUltra
)

var techNames = map[string]TechLevel{
	"animal":     TechAnimal,
	"neolithic":  TechNeolithic,
	"medieval":   TechMedieval,
	"industrial": TechIndustrial,
	"spacer":     TechSpacer,
	"ultra":      TechUltra,
}

// UnmarshalYAML reads a tech level name.
func (t *TechLevel) UnmarshalYAML(node *yaml.Node) error {
	v, ok := techNames[node.Value]
	if !ok {
		return fmt.Errorf("line %d: unknown tech level %q", node.Line, node.Value)
	}
	*t = v
	return nil
}

// PreIndustrial reports whether the tech level is below industrial.
func (t TechLevel) PreIndustrial() bool {
	return t < TechIndustrial
}

// Keep marks a restriction override as unset.
const Keep = -1

// Restrictions narrows what a faction may ride. Numeric fields set to Keep
// leave the global value in place.
type Restrictions struct {
	AllowedWild     []string `yaml:"allowed_wild" json:"allowed_wild"`
	AllowedDomestic []string `yaml:"allowed_domestic" json:"allowed_domestic"`
	MountChance     int      `yaml:"mount_chance" json:"mount_chance"`
	WildWeight      int      `yaml:"wild_weight" json:"wild_weight"`
	DomesticWeight  int      `yaml:"domestic_weight" json:"domestic_weight"`
}

// UnmarshalYAML fills omitted numeric overrides with Keep.
func (r *Restrictions) UnmarshalYAML(node *yaml.Node) error {
	type plain Restrictions
	p := plain{MountChance: Keep, WildWeight: Keep, DomesticWeight: Keep}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = Restrictions(p)
	return nil
}

// Faction is an organization agents belong to.
type Faction struct {
	ID        FactionID `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	TechLevel TechLevel `yaml:"tech_level" json:"tech_level"`
	Player    bool      `yaml:"player" json:"player"`       // The faction the user controls
	Mechanoid bool      `yaml:"mechanoid" json:"mechanoid"` // Machines never ride

	// Relations with other factions (faction ID → -100 to +100).
	Relations map[FactionID]float64 `yaml:"relations" json:"relations"`

	Restrictions *Restrictions `yaml:"restrictions" json:"restrictions,omitempty"`
}

// HostileTo reports whether the faction is at war with another.
// Relations at or below -75 are hostile; a missing entry is neutral.
func (f *Faction) HostileTo(other *Faction) bool {
	if f == nil || other == nil || f.ID == other.ID {
		return false
	}
	if rel, ok := f.Relations[other.ID]; ok && rel <= -75 {
		return true
	}
	if rel, ok := other.Relations[f.ID]; ok && rel <= -75 {
		return true
	}
	return false
}

// LoadFactions reads a YAML faction list from disk.
func LoadFactions(path string) ([]*Faction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFactions(raw)
}

// ParseFactions decodes a YAML faction list.
func ParseFactions(raw []byte) ([]*Faction, error) {
	var doc struct {
		Factions []*Faction `yaml:"factions"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("factions: %w", err)
	}
	seen := make(map[FactionID]bool, len(doc.Factions))
	for _, f := range doc.Factions {
		if seen[f.ID] {
			return nil, fmt.Errorf("factions: duplicate id %d", f.ID)
		}
		seen[f.ID] = true
		if f.Relations == nil {
			f.Relations = make(map[FactionID]float64)
		}
	}
	return doc.Factions, nil
}

// SeedFactions creates the default factions for a new world: the player's
// colony, a medieval tribe, an industrial pirate band and a mechanoid hive.
func SeedFactions() []*Faction {
	return []*Faction{
		{
			ID:        1,
			Name:      "Colony",
			TechLevel: TechIndustrial,
			Player:    true,
			Relations: map[FactionID]float64{2: 0, 3: -100, 4: -100},
		},
		{
			ID:        2,
			Name:      "Ridgeback Tribe",
			TechLevel: TechNeolithic,
			Relations: map[FactionID]float64{1: 0, 3: -40},
		},
		{
			ID:        3,
			Name:      "Dust Raiders",
			TechLevel: TechIndustrial,
			Relations: map[FactionID]float64{1: -100, 2: -40},
		},
		{
			ID:        4,
			Name:      "Hive",
			TechLevel: TechUltra,
			Mechanoid: true,
			Relations: map[FactionID]float64{1: -100, 2: -100, 3: -100},
		},
	}
}
