package world

import (
	"fmt"
	"math"
)

// Map holds the complete hex grid world state.
type Map struct {
	Hexes  map[HexCoord]*Hex `json:"-"` // All hexes keyed by coordinate
	Radius int               `json:"radius"`
	Zones  []*Zone           `json:"zones"`
}

// NewMap creates an empty map with the given radius.
// A hex grid of radius R contains hexes where max(|q|, |r|, |s|) <= R.
func NewMap(radius int) *Map {
	m := &Map{
		Hexes:  make(map[HexCoord]*Hex),
		Radius: radius,
	}
	return m
}

// NewFlatMap creates a map of the given radius filled with one terrain.
// Used for spawn areas and tests.
func NewFlatMap(radius int, terrain Terrain) *Map {
	m := NewMap(radius)
	for _, c := range Within(HexCoord{}, radius) {
		m.Set(&Hex{Coord: c, Terrain: terrain})
	}
	return m
}

// Get returns the hex at the given coordinate, or nil if out of bounds.
func (m *Map) Get(coord HexCoord) *Hex {
	return m.Hexes[coord]
}

// Set places a hex at the given coordinate.
func (m *Map) Set(hex *Hex) {
	m.Hexes[hex.Coord] = hex
}

// InBounds returns true if the coordinate is within the map radius.
func (m *Map) InBounds(coord HexCoord) bool {
	return Distance(HexCoord{}, coord) <= m.Radius
}

// Standable reports whether an agent may stand on the coordinate.
func (m *Map) Standable(coord HexCoord) bool {
	return m.InBounds(coord) && m.Get(coord).Passable()
}

// Dangerous reports whether the hex carries a hazard.
func (m *Map) Dangerous(coord HexCoord) bool {
	h := m.Get(coord)
	return h != nil && h.Dangerous
}

// Fogged reports whether the hex is still unexplored.
func (m *Map) Fogged(coord HexCoord) bool {
	h := m.Get(coord)
	return h != nil && h.Fogged
}

// Biome returns the terrain at a coordinate, falling back to plains for
// missing hexes.
func (m *Map) Biome(coord HexCoord) Terrain {
	if h := m.Get(coord); h != nil {
		return h.Terrain
	}
	return TerrainPlains
}

// CloseToEdge reports whether the coordinate lies within dist rings of the
// map's outer boundary.
func (m *Map) CloseToEdge(coord HexCoord, dist int) bool {
	return m.Radius-Distance(HexCoord{}, coord) < dist
}

// ClosestEdge returns the boundary coordinate nearest to coord, found by
// projecting it outward from the map center.
func (m *Map) ClosestEdge(coord HexCoord) HexCoord {
	d := Distance(HexCoord{}, coord)
	if d == 0 {
		return HexCoord{Q: m.Radius}
	}
	scale := float64(m.Radius) / float64(d)
	return cubeRound(float64(coord.Q)*scale, float64(coord.R)*scale)
}

// cubeRound rounds fractional axial coordinates to the nearest hex.
func cubeRound(fq, fr float64) HexCoord {
	fs := -fq - fr
	q, r, s := math.Round(fq), math.Round(fr), math.Round(fs)
	dq, dr, ds := math.Abs(q-fq), math.Abs(r-fr), math.Abs(s-fs)
	if dq > dr && dq > ds {
		q = -r - s
	} else if dr > ds {
		r = -q - s
	}
	return HexCoord{Q: int(q), R: int(r)}
}

// HexCount returns the total number of hexes in the map.
func (m *Map) HexCount() int {
	return len(m.Hexes)
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(radius=%d, hexes=%d, zones=%d)", m.Radius, m.HexCount(), len(m.Zones))
}
