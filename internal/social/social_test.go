package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFactions(t *testing.T) {
	doc := `
factions:
  - id: 1
    name: Colony
    tech_level: industrial
    player: true
  - id: 2
    name: Horse Lords
    tech_level: medieval
    relations: {1: -100}
    restrictions:
      allowed_wild: [elk]
      domestic_weight: 40
`
	fs, err := ParseFactions([]byte(doc))
	require.NoError(t, err)
	require.Len(t, fs, 2)

	assert.True(t, fs[0].Player)
	assert.NotNil(t, fs[0].Relations)
	assert.False(t, fs[0].TechLevel.PreIndustrial())
	assert.True(t, fs[1].TechLevel.PreIndustrial())

	r := fs[1].Restrictions
	require.NotNil(t, r)
	assert.Equal(t, []string{"elk"}, r.AllowedWild)
	assert.Equal(t, 40, r.DomesticWeight)
	assert.Equal(t, Keep, r.MountChance)
	assert.Equal(t, Keep, r.WildWeight)

	assert.True(t, fs[0].HostileTo(fs[1]), "hostility is symmetric")
	assert.True(t, fs[1].HostileTo(fs[0]))
	assert.False(t, fs[0].HostileTo(fs[0]))
	assert.False(t, fs[0].HostileTo(nil))
}

func TestParseFactionsErrors(t *testing.T) {
	_, err := ParseFactions([]byte("factions: [{id: 1, tech_level: steam}]"))
	assert.Error(t, err)
	_, err = ParseFactions([]byte("factions: [{id: 1}, {id: 1}]"))
	assert.Error(t, err)
}

func TestSeedFactions(t *testing.T) {
	fs := SeedFactions()
	players := 0
	for _, f := range fs {
		if f.Player {
			players++
		}
	}
	assert.Equal(t, 1, players)
	assert.True(t, fs[0].HostileTo(fs[2]))
	assert.False(t, fs[0].HostileTo(fs[1]))
}

func TestPhase(t *testing.T) {
	tests := []struct {
		phase    Phase
		moving   bool
		guarding bool
	}{
		{PhaseIdle, false, false},
		{PhaseTravel, true, false},
		{PhaseExitMap, true, false},
		{PhaseExitMapEscortCarriers, true, false},
		{PhaseExitMapTraderFighting, true, false},
		{PhaseDefendPoint, false, true},
		{PhaseDefendTraderCaravan, false, true},
		{PhaseAssault, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			assert.Equal(t, tt.moving, tt.phase.Moving())
			assert.Equal(t, tt.guarding, tt.phase.Guarding())
		})
	}
}

func TestGroupMembers(t *testing.T) {
	g := &Group{ID: 1}
	g.Add(3)
	g.Add(4)
	g.Add(3)
	assert.Equal(t, []uint64{3, 4}, g.Members)
	g.Remove(3)
	assert.Equal(t, []uint64{4}, g.Members)
	g.Remove(9)
	assert.Equal(t, []uint64{4}, g.Members)
}

func TestShippedFactionsLoad(t *testing.T) {
	factions, err := LoadFactions("../../configs/factions.yaml")
	require.NoError(t, err)
	require.Len(t, factions, 5)
	byID := map[FactionID]*Faction{}
	for _, f := range factions {
		byID[f.ID] = f
	}
	assert.True(t, byID[1].Player)
	assert.True(t, byID[1].HostileTo(byID[3]))
	assert.False(t, byID[1].HostileTo(byID[5]))
	require.NotNil(t, byID[2].Restrictions)
	assert.Equal(t, Keep, byID[2].Restrictions.MountChance)
	assert.Equal(t, 60, byID[2].Restrictions.WildWeight)
}
