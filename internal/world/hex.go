// Package world provides the hex grid, terrain, zones, and pathing used by
// riders and their mounts. Uses axial coordinates (q, r) for the hex grid.
package world

import "strings"

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Add returns the component-wise sum of two coordinates.
func (h HexCoord) Add(o HexCoord) HexCoord {
	return HexCoord{Q: h.Q + o.Q, R: h.R + o.R}
}

// Terrain types for hex tiles. A terrain doubles as the biome that decides
// which wild species live on it.
type Terrain uint8

const (
	TerrainPlains   Terrain = iota // Open grassland, most grazers
	TerrainForest                  // Deer, boar, bears
	TerrainMountain                // Goats, yaks
	TerrainCoast                   // Shore
	TerrainRiver                   // Freshwater crossings
	TerrainDesert                  // Camels, dromedaries
	TerrainSwamp                   // Slow going
	TerrainTundra                  // Caribou, muffalo
	TerrainOcean                   // Impassable
)

// Hex represents a single tile on the world map.
type Hex struct {
	Coord   HexCoord `json:"coord"`
	Terrain Terrain  `json:"terrain"`

	// Noise samples from map generation, both 0.0 to 1.0.
	Elevation float64 `json:"elevation"`
	Moisture  float64 `json:"moisture"`

	// Blocked hexes (walls, cliffs) cannot be stood on or walked through.
	Blocked bool `json:"blocked"`
	// Dangerous hexes (fire, traps) are walkable but nobody parks there.
	Dangerous bool `json:"dangerous"`
	// Fogged hexes are unexplored by the player.
	Fogged bool `json:"fogged"`
}

// Passable reports whether an agent can walk through the hex.
func (h *Hex) Passable() bool {
	return h != nil && !h.Blocked && h.Terrain != TerrainOcean
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent cells, east first, counterclockwise.
func (h HexCoord) Neighbors() [6]HexCoord {
	var out [6]HexCoord
	for i, dir := range HexNeighborDirections {
		out[i] = h.Add(dir)
	}
	return out
}

// Distance returns the number of steps between two cells: the largest of
// the three cube-coordinate differences.
func Distance(a, b HexCoord) int {
	return max(absInt(a.Q-b.Q), absInt(a.R-b.R), absInt(a.S()-b.S()))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Within returns every coordinate whose distance from center is at most radius.
func Within(center HexCoord, radius int) []HexCoord {
	if radius < 0 {
		return nil
	}
	out := make([]HexCoord, 0, 1+3*radius*(radius+1))
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			c := HexCoord{Q: q, R: r}
			if Distance(HexCoord{}, c) > radius {
				continue
			}
			out = append(out, center.Add(c))
		}
	}
	return out
}

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainPlains:
		return "Plains"
	case TerrainForest:
		return "Forest"
	case TerrainMountain:
		return "Mountain"
	case TerrainCoast:
		return "Coast"
	case TerrainRiver:
		return "River"
	case TerrainDesert:
		return "Desert"
	case TerrainSwamp:
		return "Swamp"
	case TerrainTundra:
		return "Tundra"
	case TerrainOcean:
		return "Ocean"
	default:
		return "Unknown"
	}
}

// ParseTerrain maps a case-insensitive terrain name back to its value.
func ParseTerrain(name string) (Terrain, bool) {
	for t := TerrainPlains; t <= TerrainOcean; t++ {
		if strings.EqualFold(TerrainName(t), name) {
			return t, true
		}
	}
	return 0, false
}
