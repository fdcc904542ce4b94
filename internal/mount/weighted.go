package mount

import "github.com/talgya/cavalry/internal/entropy"

// WeightedPick draws one item with probability proportional to its weight.
// Items with a weight of zero or less are never picked. Reports false when
// nothing has positive weight.
func WeightedPick[T any](src entropy.Source, items []T, weight func(T) float64) (T, bool) {
	var zero T
	total := 0.0
	for _, it := range items {
		if w := weight(it); w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return zero, false
	}

	target := src.Float64() * total
	cumulative := 0.0
	last := -1
	for i, it := range items {
		w := weight(it)
		if w <= 0 {
			continue
		}
		cumulative += w
		last = i
		if target < cumulative {
			return it, true
		}
	}
	// Float rounding can leave target at the very top of the range.
	return items[last], true
}
