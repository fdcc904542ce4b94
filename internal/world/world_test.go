package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanReachAroundWall(t *testing.T) {
	m := NewFlatMap(6, TerrainPlains)
	// Wall off a ring around the origin except for one gap.
	for i, n := range (HexCoord{}).Neighbors() {
		if i == 0 {
			continue
		}
		m.Get(n).Blocked = true
	}

	assert.True(t, m.CanReach(HexCoord{Q: 4}, HexCoord{}))

	m.Get(HexCoord{Q: 1}).Blocked = true
	assert.False(t, m.CanReach(HexCoord{Q: 4}, HexCoord{}))
	assert.False(t, m.CanReach(HexCoord{Q: 4}, HexCoord{Q: 99}), "out of bounds target")
}

func TestFindPathLength(t *testing.T) {
	m := NewFlatMap(6, TerrainPlains)
	from, to := HexCoord{Q: -3}, HexCoord{Q: 3}

	path := m.FindPath(from, to)
	require.Len(t, path, Distance(from, to))
	assert.Equal(t, to, path[len(path)-1])

	m.Get(HexCoord{}).Blocked = true
	detour := m.FindPath(from, to)
	require.NotNil(t, detour)
	assert.NotContains(t, detour, HexCoord{})
	assert.Greater(t, len(detour), len(path))
}

func TestFindPathIsland(t *testing.T) {
	m := NewFlatMap(5, TerrainOcean)
	m.Get(HexCoord{}).Terrain = TerrainPlains
	m.Get(HexCoord{Q: 3}).Terrain = TerrainPlains
	assert.Nil(t, m.FindPath(HexCoord{}, HexCoord{Q: 3}))
	assert.False(t, m.CanReach(HexCoord{}, HexCoord{Q: 3}))
}

func TestLookupNamedZones(t *testing.T) {
	m := NewFlatMap(4, TerrainPlains)
	rng := rand.New(rand.NewSource(1))
	noMount := NewZone(LabelNoMount, rng)
	drop := NewZone(LabelDropAnimals, rng)
	m.AddZone(NewZone("stockpile", rng))
	m.AddZone(noMount)
	m.AddZone(drop)

	gotNoMount, gotDrop := m.LookupNamedZones()
	assert.Same(t, noMount, gotNoMount)
	assert.Same(t, drop, gotDrop)

	empty := NewFlatMap(2, TerrainPlains)
	a, b := empty.LookupNamedZones()
	assert.Nil(t, a)
	assert.Nil(t, b)
}

func TestZoneClosestCellTieBreak(t *testing.T) {
	z := NewZone("z", nil)
	z.Add(HexCoord{Q: 2}, HexCoord{Q: -2}, HexCoord{Q: 0, R: 5})
	c, ok := z.ClosestCell(HexCoord{})
	require.True(t, ok)
	assert.Equal(t, HexCoord{Q: -2}, c)

	_, ok = NewZone("empty", nil).ClosestCell(HexCoord{})
	assert.False(t, ok)
}

func TestClosestPenSkipsBlockedCells(t *testing.T) {
	m := NewFlatMap(6, TerrainPlains)
	near := NewZone("pen-near", nil)
	near.Pen = true
	near.Add(HexCoord{Q: 1})
	m.Get(HexCoord{Q: 1}).Blocked = true
	far := NewZone("pen-far", nil)
	far.Pen = true
	far.Add(HexCoord{Q: 4})
	m.AddZone(near)
	m.AddZone(far)

	assert.Same(t, far, m.ClosestPen(HexCoord{}))
	c, ok := m.PlaceInPen(far, HexCoord{})
	require.True(t, ok)
	assert.Equal(t, HexCoord{Q: 4}, c)
}

func TestEdges(t *testing.T) {
	m := NewFlatMap(10, TerrainPlains)
	assert.True(t, m.CloseToEdge(HexCoord{Q: 5}, 10))
	assert.False(t, m.CloseToEdge(HexCoord{}, 10))

	edge := m.ClosestEdge(HexCoord{Q: 3})
	assert.Equal(t, HexCoord{Q: 10}, edge)
	assert.Equal(t, 10, Distance(HexCoord{}, m.ClosestEdge(HexCoord{Q: 2, R: -1})))
	assert.Equal(t, 10, Distance(HexCoord{}, m.ClosestEdge(HexCoord{})))
}

func TestTryFindRandomCellNear(t *testing.T) {
	m := NewFlatMap(8, TerrainPlains)
	rng := rand.New(rand.NewSource(7))
	c, ok := m.TryFindRandomCellNear(HexCoord{}, 4, 16, rng, func(c HexCoord) bool {
		return c.Q > 0
	})
	require.True(t, ok)
	assert.Greater(t, c.Q, 0)
	assert.LessOrEqual(t, Distance(HexCoord{}, c), 4)

	_, ok = m.TryFindRandomCellNear(HexCoord{}, 4, 16, rng, func(HexCoord) bool { return false })
	assert.False(t, ok)
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(SmallTestConfig())
	b := Generate(SmallTestConfig())
	require.Equal(t, a.HexCount(), b.HexCount())
	for c, h := range a.Hexes {
		assert.Equal(t, h.Terrain, b.Get(c).Terrain)
	}
	assert.Equal(t, len(Within(HexCoord{}, 6)), a.HexCount())
}

func TestGeneratedMapIsConnected(t *testing.T) {
	for _, seed := range []int64{1, 7, 99} {
		cfg := DefaultGenConfig()
		cfg.Radius = 14
		cfg.Seed = seed
		m := Generate(cfg)

		center := HexCoord{}
		require.True(t, m.Standable(center), "seed %d", seed)
		for _, c := range Within(center, cfg.Clearing) {
			assert.True(t, m.Standable(c), "clearing cell %v, seed %d", c, seed)
		}
		for coord := range m.Hexes {
			if Distance(center, coord) == cfg.Radius {
				assert.True(t, m.Standable(coord), "rim cell %v, seed %d", coord, seed)
			}
			if m.Standable(coord) {
				assert.True(t, m.CanReach(center, coord), "cell %v cut off, seed %d", coord, seed)
			}
		}
	}
}

func TestGenerateFallsBackToPlains(t *testing.T) {
	cfg := SmallTestConfig()
	cfg.Biome = "ocean"
	cfg.Rivers = 0
	cfg.WaterLevel = 0
	cfg.RockLevel = 2
	m := Generate(cfg)
	counts := TerrainCounts(m)
	assert.Zero(t, counts[TerrainOcean])
	assert.Greater(t, counts[TerrainPlains], 0)
	assert.True(t, m.Standable(HexCoord{}))
}

func TestParseNames(t *testing.T) {
	terrain, ok := ParseTerrain("forest")
	require.True(t, ok)
	assert.Equal(t, TerrainForest, terrain)
	season, ok := ParseSeason("WINTER")
	require.True(t, ok)
	assert.Equal(t, SeasonWinter, season)
	_, ok = ParseSeason("monsoon")
	assert.False(t, ok)
}
