package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/config"
	"github.com/talgya/cavalry/internal/engine"
	"github.com/talgya/cavalry/internal/extdata"
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
kinds:
  - id: colonist
    species: human
  - id: raider
    species: human
`

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newSim(t *testing.T) *engine.Simulation {
	t.Helper()
	cat, err := agents.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	settings := config.DefaultSettings()
	settings.EnemyMountChance = 100
	settings.EnemyMountChancePreInd = 100
	settings.MinHandlingLevel = 21
	settings.InBiomeWeight = 0
	settings.OutBiomeWeight = 0
	return engine.NewSimulation(engine.Options{
		Map:      world.NewFlatMap(12, world.TerrainPlains),
		Catalog:  cat,
		Settings: &settings,
		Seed:     3,
	})
}

func TestMetaAndWorldID(t *testing.T) {
	db := openTestDB(t)
	assert.False(t, db.HasWorldState())

	_, err := db.GetMeta("missing")
	assert.Error(t, err)

	require.NoError(t, db.SaveMeta("k", "v1"))
	require.NoError(t, db.SaveMeta("k", "v2"))
	v, err := db.GetMeta("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	id, err := db.WorldID()
	require.NoError(t, err)
	again, err := db.WorldID()
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Len(t, id, 36)
}

func TestRidingRoundTrip(t *testing.T) {
	db := openTestDB(t)
	m := agents.AgentID(2)
	r := agents.AgentID(1)
	entries := []extdata.Entry{
		{ID: 1, Mount: &m},
		{ID: 2, ReservedBy: &r},
		{ID: 3},
	}
	require.NoError(t, db.SaveRiding(entries))

	got, err := db.LoadRiding()
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.NotNil(t, got[0].Mount)
	assert.Equal(t, m, *got[0].Mount)
	assert.Nil(t, got[0].ReservedBy)
	require.NotNil(t, got[1].ReservedBy)
	assert.Equal(t, r, *got[1].ReservedBy)
	assert.Nil(t, got[2].Mount)

	// Saving again replaces the old rows.
	require.NoError(t, db.SaveRiding(entries[:1]))
	got, err = db.LoadRiding()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestZonesRoundTrip(t *testing.T) {
	db := openTestDB(t)
	pen := world.NewZone("paddock", nil)
	pen.Color = world.Color{R: 10, G: 20, B: 30}
	pen.Pen = true
	pen.Add(world.HexCoord{Q: 1, R: 0}, world.HexCoord{Q: 0, R: 1})
	noMount := world.NewZone(world.LabelNoMount, nil)
	noMount.Add(world.HexCoord{Q: -2, R: 2})

	require.NoError(t, db.SaveZones([]*world.Zone{pen, noMount}))
	got, err := db.LoadZones()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, world.LabelNoMount, got[0].Label)
	assert.False(t, got[0].Pen)
	assert.Equal(t, "paddock", got[1].Label)
	assert.True(t, got[1].Pen)
	assert.Equal(t, pen.Color, got[1].Color)
	assert.Equal(t, pen.CellList(), got[1].CellList())
}

func TestWorldStateRoundTrip(t *testing.T) {
	db := openTestDB(t)
	sim := newSim(t)
	_, err := sim.SpawnParty(engine.PartySpec{FactionID: 3, Kind: "raider", Count: 2, Points: 500}, 0)
	require.NoError(t, err)
	_, err = sim.SeedColony("colonist", 1, "horse", 0)
	require.NoError(t, err)
	for tick := uint64(1); tick <= 10; tick++ {
		sim.TickMinute(tick)
	}
	dropOff := world.NewZone(world.LabelDropAnimals, nil)
	dropOff.Add(world.HexCoord{Q: 3, R: -3})
	sim.WorldMap.AddZone(dropOff)

	require.NoError(t, db.SaveWorldState(sim))
	assert.True(t, db.HasWorldState())

	st, zones, err := db.LoadWorldState()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), st.Tick)
	assert.Len(t, st.Agents, len(sim.Agents))
	assert.Len(t, st.Groups, 1)
	assert.Equal(t, sim.Store.Snapshot(), st.Riding)
	require.Len(t, zones, 1)
	assert.Equal(t, world.LabelDropAnimals, zones[0].Label)

	events, err := db.RecentEvents(5)
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	restored := newSim(t)
	for _, z := range zones {
		restored.WorldMap.AddZone(z)
	}
	require.NoError(t, restored.Restore(st))
	coupled := 0
	for _, e := range st.Riding {
		if e.Mount != nil {
			coupled++
		}
	}
	assert.GreaterOrEqual(t, coupled, 2, "both raiders were in the saddle")
	assert.Len(t, restored.RideViews(), coupled)
	require.NoError(t, restored.Store.Validate())
}
