package world

import "strings"

// Season is the quarter of the year. Species only travel in seasons their
// climate tolerates.
type Season uint8

const (
	SeasonSpring Season = iota
	SeasonSummer
	SeasonAutumn
	SeasonWinter
)

// SeasonName returns a human-readable season name.
func SeasonName(s Season) string {
	switch s {
	case SeasonSpring:
		return "Spring"
	case SeasonSummer:
		return "Summer"
	case SeasonAutumn:
		return "Autumn"
	case SeasonWinter:
		return "Winter"
	default:
		return "Unknown"
	}
}

// ParseSeason maps a case-insensitive season name back to its value.
func ParseSeason(name string) (Season, bool) {
	for s := SeasonSpring; s <= SeasonWinter; s++ {
		if strings.EqualFold(SeasonName(s), name) {
			return s, true
		}
	}
	return 0, false
}
