package world

import (
	"math/rand"
	"sort"
)

// Reserved zone labels. Only one zone per label is expected on a map.
const (
	LabelNoMount     = "no-mount"
	LabelDropAnimals = "animal-drop-off"
)

// Color is a zone's display color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Zone is a labelled set of cells painted onto the map.
type Zone struct {
	Label string            `json:"label"`
	Color Color             `json:"color"`
	Pen   bool              `json:"pen"` // Holding pen for animals
	Cells map[HexCoord]bool `json:"-"`
}

// NewZone creates an empty zone with a random display color.
func NewZone(label string, rng *rand.Rand) *Zone {
	z := &Zone{Label: label, Cells: make(map[HexCoord]bool)}
	if rng != nil {
		z.Color = Color{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256))}
	}
	return z
}

// Add paints cells into the zone.
func (z *Zone) Add(cells ...HexCoord) {
	if z.Cells == nil {
		z.Cells = make(map[HexCoord]bool)
	}
	for _, c := range cells {
		z.Cells[c] = true
	}
}

// Contains reports whether the cell is painted.
func (z *Zone) Contains(c HexCoord) bool {
	return z != nil && z.Cells[c]
}

// CellList returns the painted cells in a stable order.
func (z *Zone) CellList() []HexCoord {
	out := make([]HexCoord, 0, len(z.Cells))
	for c := range z.Cells {
		out = append(out, c)
	}
	sortCoords(out)
	return out
}

// ClosestCell returns the painted cell nearest to target. Ties go to the
// lowest (q, r) so the answer does not depend on map iteration order.
func (z *Zone) ClosestCell(target HexCoord) (HexCoord, bool) {
	return closest(z.CellList(), target, nil)
}

// LookupNamedZones finds the no-mount and drop-off zones in a single pass
// over the map's zone list.
func (m *Map) LookupNamedZones() (noMount, dropOff *Zone) {
	for _, z := range m.Zones {
		switch z.Label {
		case LabelNoMount:
			noMount = z
		case LabelDropAnimals:
			dropOff = z
		}
	}
	return noMount, dropOff
}

// AddZone appends a zone, replacing any existing zone with the same label.
func (m *Map) AddZone(z *Zone) {
	for i, existing := range m.Zones {
		if existing.Label == z.Label {
			m.Zones[i] = z
			return
		}
	}
	m.Zones = append(m.Zones, z)
}

// ClosestPen returns the pen zone with a standable cell nearest to from.
func (m *Map) ClosestPen(from HexCoord) *Zone {
	var best *Zone
	bestDist := -1
	for _, z := range m.Zones {
		if !z.Pen {
			continue
		}
		c, ok := m.PlaceInPen(z, from)
		if !ok {
			continue
		}
		if d := Distance(from, c); bestDist < 0 || d < bestDist {
			best, bestDist = z, d
		}
	}
	return best
}

// PlaceInPen returns the standable pen cell nearest to from.
func (m *Map) PlaceInPen(pen *Zone, from HexCoord) (HexCoord, bool) {
	return closest(pen.CellList(), from, m.Standable)
}

func closest(cells []HexCoord, target HexCoord, ok func(HexCoord) bool) (HexCoord, bool) {
	var best HexCoord
	found := false
	bestDist := 0
	for _, c := range cells {
		if ok != nil && !ok(c) {
			continue
		}
		d := Distance(c, target)
		if !found || d < bestDist {
			best, bestDist, found = c, d, true
		}
	}
	return best, found
}

func sortCoords(cs []HexCoord) {
	sort.Slice(cs, func(i, j int) bool { return less(cs[i], cs[j]) })
}

// less orders coordinates by column, then row.
func less(a, b HexCoord) bool {
	if a.Q != b.Q {
		return a.Q < b.Q
	}
	return a.R < b.R
}
