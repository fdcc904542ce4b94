// Colony map generation from layered simplex noise. One biome covers the
// whole map; elevation carves lakes and rock outcrops into it and moisture
// varies the ground cover.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Radius     int     `yaml:"radius"`      // Hex grid radius
	Seed       int64   `yaml:"seed"`        // Random seed (0 = random)
	Biome      string  `yaml:"biome"`       // Base terrain name, e.g. "plains"
	WaterLevel float64 `yaml:"water_level"` // Elevation below which lakes form (0.0–1.0)
	RockLevel  float64 `yaml:"rock_level"`  // Elevation above which ground turns to rock
	CliffLevel float64 `yaml:"cliff_level"` // Elevation above which rock is impassable
	Rivers     int     `yaml:"rivers"`      // Streams traced downhill from high ground
	Clearing   int     `yaml:"clearing"`    // Radius of open ground kept around the colony
}

// DefaultGenConfig returns a mid-sized temperate colony map.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:     30,
		Biome:      "plains",
		WaterLevel: 0.22,
		RockLevel:  0.74,
		CliffLevel: 0.86,
		Rivers:     2,
		Clearing:   4,
	}
}

// SmallTestConfig returns a tiny map for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Radius:     6,
		Seed:       42,
		Biome:      "forest",
		WaterLevel: 0.3,
		RockLevel:  0.7,
		CliffLevel: 0.8,
		Rivers:     1,
		Clearing:   2,
	}
}

// Generate creates a colony map. The colony clearing and the outer ring are
// always open ground, and every standable hex can be walked to from the
// center so parties entering at the edge can reach the colony.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	base, ok := ParseTerrain(cfg.Biome)
	if !ok || base == TerrainOcean {
		base = TerrainPlains
	}

	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	m := NewMap(cfg.Radius)
	for _, coord := range Within(HexCoord{}, cfg.Radius) {
		x, y := pixel(coord)
		elev := octaveNoise(elevNoise, x, y, 4, 0.11, 0.5)
		moist := octaveNoise(moistNoise, x, y, 2, 0.09, 0.6)

		hex := &Hex{Coord: coord, Elevation: elev, Moisture: moist}
		switch {
		case elev < cfg.WaterLevel:
			hex.Terrain = TerrainOcean
		case elev > cfg.RockLevel:
			hex.Terrain = TerrainMountain
			hex.Blocked = cfg.CliffLevel > 0 && elev > cfg.CliffLevel
		default:
			hex.Terrain = groundCover(base, moist)
		}
		m.Set(hex)
	}

	markShores(m, base)
	placeRivers(m, seed, cfg.Rivers)
	openGround(m, base, cfg.Clearing)
	sealPockets(m)

	return m
}

// pixel converts axial coordinates to continuous space for noise sampling.
func pixel(c HexCoord) (float64, float64) {
	return float64(c.Q) + float64(c.R)*0.5, float64(c.R) * math.Sqrt(3.0) / 2.0
}

// groundCover varies the biome with local moisture: wet patches grow trees
// or bog, dry ones thin out to open ground.
func groundCover(base Terrain, moist float64) Terrain {
	switch base {
	case TerrainPlains:
		if moist > 0.68 {
			return TerrainForest
		}
	case TerrainForest:
		if moist < 0.3 {
			return TerrainPlains
		}
		if moist > 0.8 {
			return TerrainSwamp
		}
	case TerrainDesert:
		if moist > 0.78 {
			return TerrainPlains
		}
	case TerrainSwamp:
		if moist < 0.35 {
			return TerrainForest
		}
	case TerrainTundra:
		if moist > 0.75 {
			return TerrainForest
		}
	}
	return base
}

// markShores turns low ground bordering a lake into shore.
func markShores(m *Map, base Terrain) {
	if base == TerrainDesert || base == TerrainTundra {
		return
	}
	var shore []*Hex
	for _, hex := range m.Hexes {
		if hex.Terrain == TerrainOcean || hex.Terrain == TerrainMountain {
			continue
		}
		for _, n := range hex.Coord.Neighbors() {
			if nh := m.Get(n); nh != nil && nh.Terrain == TerrainOcean {
				shore = append(shore, hex)
				break
			}
		}
	}
	for _, hex := range shore {
		hex.Terrain = TerrainCoast
	}
}

// placeRivers runs n streams downhill from the highest open ground.
func placeRivers(m *Map, seed int64, n int) {
	if n <= 0 {
		return
	}
	rng := rand.New(rand.NewSource(seed + 100))

	var sources []HexCoord
	for coord, hex := range m.Hexes {
		if hex.Elevation > 0.6 && hex.Passable() {
			sources = append(sources, coord)
		}
	}
	// Sorting first keeps the pick independent of map order.
	sortCoords(sources)
	rng.Shuffle(len(sources), func(i, j int) {
		sources[i], sources[j] = sources[j], sources[i]
	})
	if len(sources) > n {
		sources = sources[:n]
	}
	for _, start := range sources {
		traceRiver(m, start)
	}
}

// traceRiver follows the steepest descent until it reaches a lake, the map
// edge or a hollow. River hexes are fords: passable, but they count as
// their own biome.
func traceRiver(m *Map, start HexCoord) {
	visited := make(map[HexCoord]bool)
	current := start
	for step := 0; step < 2*m.Radius+1; step++ {
		visited[current] = true
		hex := m.Get(current)
		if hex == nil || hex.Terrain == TerrainOcean {
			return
		}
		if hex.Terrain != TerrainMountain {
			hex.Terrain = TerrainRiver
		}

		next, lowest := current, hex.Elevation
		for _, nc := range current.Neighbors() {
			nh := m.Get(nc)
			if nh == nil || visited[nc] {
				continue
			}
			if nh.Elevation < lowest {
				next, lowest = nc, nh.Elevation
			}
		}
		if next == current {
			return
		}
		current = next
	}
}

// openGround clears the colony site, the outer ring and a track running
// east from the colony to the ring, so the two are always connected.
func openGround(m *Map, base Terrain, clearing int) {
	for coord, hex := range m.Hexes {
		d := Distance(HexCoord{}, coord)
		track := coord.R == 0 && coord.Q > 0
		if d > clearing && d < m.Radius && !track {
			continue
		}
		if !hex.Passable() || hex.Terrain == TerrainMountain {
			hex.Terrain = base
			hex.Blocked = false
		}
	}
}

// sealPockets blocks any open hex that cannot be walked to from the center.
func sealPockets(m *Map) {
	center := HexCoord{}
	if !m.Standable(center) {
		return
	}
	seen := map[HexCoord]bool{center: true}
	queue := []HexCoord{center}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, n := range c.Neighbors() {
			if !seen[n] && m.Standable(n) {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	for coord, hex := range m.Hexes {
		if hex.Passable() && !seen[coord] {
			hex.Blocked = true
		}
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total, amplitude, maxVal := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(m *Map) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, hex := range m.Hexes {
		counts[hex.Terrain]++
	}
	return counts
}
