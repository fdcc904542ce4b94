package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/cavalry/internal/world"
)

const testCatalog = `
species:
  - id: human
    name: Human
    intelligence: humanlike
  - id: horse
    name: Horse
    mountable: true
    market_value: 500
    riding_speed: 1.5
    draw_offset: 0.4
  - id: elk
    name: Elk
    wild: true
    mountable: true
    wildness: 0.5
    combat_power: 90
    seasons: [spring, summer]
    commonality:
      forest: 0.4
      tundra: 0.8
  - id: boar
    name: Boar
    wild: true
    commonality:
      forest: 0.6
kinds:
  - id: raider
    species: human
  - id: slave
    species: human
    slave: true
  - id: horse_archer
    species: human
    custom_mounts:
      chance: 80
      mounts:
        - species: horse
          weight: 3
`

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	return c
}

func TestParseCatalog(t *testing.T) {
	c := loadTestCatalog(t)

	human := c.Species("human")
	require.NotNil(t, human)
	assert.True(t, human.Humanlike())
	assert.Equal(t, IntelligenceAnimal, c.Species("horse").Intelligence)

	archer := c.Kind("horse_archer")
	require.NotNil(t, archer)
	require.NotNil(t, archer.CustomMounts)
	assert.Equal(t, 80, archer.CustomMounts.Chance)
	assert.Nil(t, c.Kind("raider").CustomMounts)
	assert.True(t, c.Kind("slave").Slave)
}

func TestCatalogRejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown intelligence", "species: [{id: x, intelligence: plant}]"},
		{"unknown biome", "species: [{id: x, commonality: {moon: 1}}]"},
		{"unknown season", "species: [{id: x, seasons: [monsoon]}]"},
		{"duplicate species", "species: [{id: x}, {id: x}]"},
		{"kind without species", "kinds: [{id: k, species: ghost}]"},
		{"bad custom mount", "species: [{id: x}]\nkinds: [{id: k, species: x, custom_mounts: {chance: 1, mounts: [{species: ghost, weight: 1}]}}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestCatalogQueries(t *testing.T) {
	c := loadTestCatalog(t)

	ids := func(ss []*Species) []string {
		var out []string
		for _, s := range ss {
			out = append(out, s.ID)
		}
		return out
	}
	assert.Equal(t, []string{"boar", "elk"}, ids(c.WildAnimals()))
	assert.Equal(t, []string{"horse"}, ids(c.DomesticAnimals()))
	assert.Equal(t, []string{"boar", "elk"}, ids(c.BiomeAnimals(world.TerrainForest)))
	assert.Equal(t, []string{"elk"}, ids(c.BiomeAnimals(world.TerrainTundra)))
	assert.Empty(t, c.BiomeAnimals(world.TerrainDesert))

	assert.InDelta(t, 0.5, c.AverageCommonality(world.TerrainForest), 1e-9)
	assert.Zero(t, c.AverageCommonality(world.TerrainDesert))

	elk := c.Species("elk")
	assert.True(t, elk.SeasonAcceptable(world.SeasonSummer))
	assert.False(t, elk.SeasonAcceptable(world.SeasonWinter))
	assert.True(t, c.Species("horse").SeasonAcceptable(world.SeasonWinter))
	assert.InDelta(t, 0.8, elk.CommonalityIn(world.TerrainTundra), 1e-9)
}

func TestSpawnGroup(t *testing.T) {
	c := loadTestCatalog(t)
	s := NewSpawner(42, c)
	m := world.NewFlatMap(6, world.TerrainPlains)
	fid := uint64(7)

	group := s.SpawnGroup(m, "raider", 5, world.HexCoord{}, &fid, 10)
	require.Len(t, group, 5)
	seen := map[AgentID]bool{}
	for _, a := range group {
		assert.False(t, seen[a.ID], "ids are unique")
		seen[a.ID] = true
		assert.Equal(t, "human", a.Species)
		assert.Equal(t, "raider", a.Kind)
		assert.True(t, a.InFaction(7))
		assert.True(t, a.Alive)
		assert.LessOrEqual(t, world.Distance(world.HexCoord{}, a.Position), 2)
		assert.GreaterOrEqual(t, a.Skills.Handling, 0)
		assert.LessOrEqual(t, a.Skills.Handling, 20)
		assert.NotEmpty(t, a.Name)
	}
	// Faction ids are copied, not shared.
	*group[0].FactionID = 99
	assert.True(t, group[1].InFaction(7))

	assert.Nil(t, s.SpawnGroup(m, "ghost", 2, world.HexCoord{}, nil, 0))
}

func TestSpawnAnimal(t *testing.T) {
	s := NewSpawner(1, loadTestCatalog(t))
	s.SetNextID(50)

	horse := s.SpawnAnimal("horse", world.HexCoord{Q: 1}, nil, 3)
	require.NotNil(t, horse)
	assert.Equal(t, AgentID(50), horse.ID)
	assert.Equal(t, AgentID(51), s.NextID())
	assert.False(t, horse.Trained)
	assert.Nil(t, s.SpawnAnimal("unicorn", world.HexCoord{}, nil, 0))
}

func TestPather(t *testing.T) {
	var p Pather
	here := world.HexCoord{Q: 1}
	assert.False(t, p.Moving())
	assert.Equal(t, here, p.NextCell(here))
	assert.Equal(t, here, p.DestinationOr(here))

	p.StartPath(world.HexCoord{Q: 3})
	p.Cells = []world.HexCoord{{Q: 2}, {Q: 3}}
	assert.True(t, p.Moving())
	assert.Equal(t, world.HexCoord{Q: 2}, p.NextCell(here))
	assert.Equal(t, world.HexCoord{Q: 3}, p.DestinationOr(here))

	p.StopDead()
	assert.False(t, p.Moving())
	assert.Empty(t, p.Cells)
}

func TestSameFaction(t *testing.T) {
	one, two := uint64(1), uint64(2)
	assert.True(t, SameFaction(&Agent{}, &Agent{}))
	assert.False(t, SameFaction(&Agent{FactionID: &one}, &Agent{}))
	assert.False(t, SameFaction(&Agent{FactionID: &one}, &Agent{FactionID: &two}))
	other := uint64(1)
	assert.True(t, SameFaction(&Agent{FactionID: &one}, &Agent{FactionID: &other}))
}

func TestShippedCatalogLoads(t *testing.T) {
	cat, err := LoadCatalog("../../configs/catalog.yaml")
	require.NoError(t, err)
	require.NotNil(t, cat.Kind("horse_archer"))
	assert.Equal(t, 90, cat.Kind("horse_archer").CustomMounts.Chance)
	assert.True(t, cat.Species("human").Humanlike())
	assert.True(t, cat.Kind("slave").Slave)
}
