package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/config"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/metrics"
	"github.com/talgya/cavalry/internal/mount"
	"github.com/talgya/cavalry/internal/social"
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
kinds:
  - id: colonist
    species: human
  - id: raider
    species: human
  - id: trader
    species: human
`

// newTestSim builds a simulation on a flat plain where every raider and
// trader rides in on a horse.
func newTestSim(t *testing.T) *Simulation {
	t.Helper()
	return newTestSimOn(t, world.NewFlatMap(15, world.TerrainPlains))
}

func newTestSimOn(t *testing.T, m *world.Map) *Simulation {
	t.Helper()
	cat, err := agents.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	settings := config.DefaultSettings()
	settings.EnemyMountChance = 100
	settings.EnemyMountChancePreInd = 100
	settings.MinHandlingLevel = 21
	settings.InBiomeWeight = 0
	settings.OutBiomeWeight = 0

	return NewSimulation(Options{
		Map:      m,
		Catalog:  cat,
		Settings: &settings,
		Metrics:  metrics.NewRecorder(),
		Seed:     11,
	})
}

func (s *Simulation) run(from uint64, n int) uint64 {
	for i := 0; i < n; i++ {
		from++
		s.TickMinute(from)
	}
	return from
}

func TestEngineStepLayers(t *testing.T) {
	e := NewEngine(60)
	var ticks, hours, days int
	e.OnTick = func(uint64) { ticks++ }
	e.OnHour = func(uint64) { hours++ }
	e.OnDay = func(uint64) { days++ }

	for i := 0; i < TicksPerSimDay; i++ {
		e.Step()
	}
	assert.Equal(t, TicksPerSimDay, ticks)
	assert.Equal(t, 24, hours)
	assert.Equal(t, 1, days)
	assert.False(t, e.Running())
}

func TestSimTime(t *testing.T) {
	assert.Equal(t, "Spring Day 1, 0:00 Year 1", SimTime(0))
	assert.Equal(t, "Spring Day 1, 1:05 Year 1", SimTime(65))
	assert.Equal(t, "Summer Day 1, 0:00 Year 1", SimTime(TicksPerSimSeason))
	assert.Equal(t, world.SeasonWinter, SeasonAt(3*TicksPerSimSeason))
	assert.Equal(t, world.SeasonSpring, SeasonAt(4*TicksPerSimSeason))
}

func TestFacing(t *testing.T) {
	from := world.HexCoord{}
	assert.Equal(t, agents.RotEast, facing(from, world.HexCoord{Q: 1}))
	assert.Equal(t, agents.RotWest, facing(from, world.HexCoord{Q: -1}))
	assert.Equal(t, agents.RotNorth, facing(from, world.HexCoord{Q: 1, R: -1}))
	assert.Equal(t, agents.RotSouth, facing(from, world.HexCoord{Q: -1, R: 1}))
}

func TestRaidRidesIn(t *testing.T) {
	s := newTestSim(t)
	g, err := s.SpawnParty(PartySpec{FactionID: 3, Kind: "raider", Count: 3, Points: 500}, 0)
	require.NoError(t, err)

	assert.Len(t, g.Members, 6, "three raiders and three horses")
	assert.Equal(t, social.PhaseTravel, g.Phase)

	var riders []*agents.Agent
	for _, a := range s.Agents {
		if a.Species == "human" {
			riders = append(riders, a)
		}
	}
	require.Len(t, riders, 3)
	for _, r := range riders {
		rec, ok := s.Store.Lookup(r.ID)
		require.True(t, ok)
		require.True(t, rec.Mounted(), "rider %d should be coupled", r.ID)
		d, ok := s.Tracker(rec.Mount()).Driver().(*mount.MountedDriver)
		require.True(t, ok)
		assert.Equal(t, r.ID, d.Session().Rider)
	}
	require.NoError(t, s.Store.Validate())

	// The horses carry their riders toward the colony.
	s.run(0, 20)
	for _, r := range riders {
		rec, _ := s.Store.Lookup(r.ID)
		horse := s.Agent(rec.Mount())
		assert.Equal(t, r.Position, horse.Position, "mount mirrors rider %d", r.ID)
		assert.True(t, mount.IsMountedAnimal(s.Tracker(horse.ID)))
	}
	assert.Len(t, s.RideViews(), 3)
	for _, v := range s.RideViews() {
		assert.Equal(t, "riding", v.State)
	}
}

func TestSpawnPartyErrors(t *testing.T) {
	s := newTestSim(t)
	_, err := s.SpawnParty(PartySpec{FactionID: 99, Kind: "raider", Count: 1}, 0)
	assert.ErrorIs(t, err, ErrUnknownFaction)

	_, err = s.SpawnParty(PartySpec{FactionID: 3, Kind: "knight", Count: 1}, 0)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestMechanoidsWalk(t *testing.T) {
	s := newTestSim(t)
	g, err := s.SpawnParty(PartySpec{FactionID: 4, Kind: "raider", Count: 2}, 0)
	require.NoError(t, err)
	assert.Len(t, g.Members, 2)
	assert.Equal(t, 0, s.Store.Len())
}

func TestRiderMovesFasterThanWalker(t *testing.T) {
	s := newTestSim(t)
	fid := uint64(1)
	walker := s.Spawner.SpawnAnimal("horse", world.HexCoord{Q: -10}, &fid, 0)
	s.Spawn(walker)
	rider := s.Spawner.SpawnAnimal("horse", world.HexCoord{Q: -10, R: 2}, &fid, 0)
	s.Spawn(rider)
	s.Store.Mount(rider.ID, 999)

	walker.Path.StartPath(world.HexCoord{Q: 10})
	rider.Path.StartPath(world.HexCoord{Q: 10, R: 2})
	for tick := uint64(1); tick <= 10; tick++ {
		s.move(walker, tick)
		s.move(rider, tick)
	}
	assert.Equal(t, 5, world.Distance(world.HexCoord{Q: -10}, walker.Position))
	assert.Equal(t, 10, world.Distance(world.HexCoord{Q: -10, R: 2}, rider.Position))
	assert.Equal(t, agents.RotEast, rider.Rotation)
}

func TestMoveStopsWhenUnreachable(t *testing.T) {
	s := newTestSim(t)
	a := s.Spawner.SpawnAnimal("horse", world.HexCoord{}, nil, 0)
	s.Spawn(a)
	a.Path.StartPath(world.HexCoord{Q: 40})
	s.move(a, 2)
	assert.False(t, a.Path.Moving())
	assert.Equal(t, world.HexCoord{}, a.Position)
}

func TestColonistRidesToDistantWork(t *testing.T) {
	s := newTestSim(t)
	colonists, err := s.SeedColony("colonist", 1, "horse", 0)
	require.NoError(t, err)
	require.Len(t, colonists, 1)
	c := colonists[0]

	rec, ok := s.Store.Lookup(c.ID)
	require.True(t, ok)
	horseID := rec.ReservedMount()
	require.NotEqual(t, agents.NoAgent, horseID)

	s.Settings.AutoMountDistance = 8
	far, ok := s.WorldMap.TryFindRandomCellNear(world.HexCoord{}, 15, 200, s.rng, func(cell world.HexCoord) bool {
		return world.Distance(c.Position, cell) >= s.Settings.AutoMountDistance
	})
	require.True(t, ok)
	trip := jobs.NewCellJob(jobs.DefGoto, far)
	s.Tracker(c.ID).EnqueueLast(trip)

	s.TickMinute(1)
	assert.Equal(t, jobs.DefMount, s.Tracker(c.ID).CurrentDef(), "rider fetches its horse first")
	assert.Same(t, trip, s.Tracker(c.ID).PeekQueued())

	rode := false
	for tick := uint64(2); tick < 400 && !rode; tick++ {
		s.TickMinute(tick)
		rode = mount.IsMountedAnimal(s.Tracker(horseID))
	}
	assert.True(t, rode, "colonist should ride toward its work")
}

// A colonist riding toward a no-mount zone is steered to the drop-off zone
// by its mount, gets off there and walks the rest of the way.
func TestRiderParksBeforeNoMountZone(t *testing.T) {
	s := newTestSimOn(t, world.NewFlatMap(30, world.TerrainPlains))
	dest := world.HexCoord{Q: 25}
	drop := world.HexCoord{Q: 15, R: -3}
	noMount := world.NewZone(world.LabelNoMount, nil)
	noMount.Add(dest, world.HexCoord{Q: 24}, world.HexCoord{Q: 24, R: 1})
	s.WorldMap.AddZone(noMount)
	dropOff := world.NewZone(world.LabelDropAnimals, nil)
	dropOff.Add(drop)
	s.WorldMap.AddZone(dropOff)

	colonists, err := s.SeedColony("colonist", 1, "horse", 0)
	require.NoError(t, err)
	c := colonists[0]
	rec, ok := s.Store.Lookup(c.ID)
	require.True(t, ok)
	horse := s.Agent(rec.ReservedMount())
	require.NotNil(t, horse)

	start := world.HexCoord{Q: -25}
	c.Position, horse.Position = start, start
	_, err = s.Rides.GiveMountJob(c, horse, mount.Instant, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Order(c.ID, jobs.NewCellJob(jobs.DefGoto, dest)))

	parked := false
	tick := uint64(0)
	for tick < 300 && c.Position != dest {
		tick++
		s.TickMinute(tick)
		r, _ := s.Store.Lookup(c.ID)
		if r.Mounted() {
			require.False(t, noMount.Contains(c.Position), "tick %d: rider entered the no-mount zone mounted", tick)
			continue
		}
		if !parked {
			parked = true
			assert.Equal(t, drop, horse.Position, "horse is left at the drop-off zone")
			assert.LessOrEqual(t, world.Distance(c.Position, drop), 1)
			assert.Equal(t, dest, c.Path.DestinationOr(c.Position), "rider resumes its trip")
		}
	}
	require.True(t, parked, "rider never got off")
	assert.Equal(t, dest, c.Position, "rider walks on into the zone")
	assert.Equal(t, jobs.DefGoto, s.Tracker(c.ID).CurrentDef())
	r, _ := s.Store.Lookup(c.ID)
	assert.False(t, r.Mounted())
	assert.Equal(t, horse.ID, r.ReservedMount())
	require.NoError(t, s.Store.Validate())
}

func TestDraftingCallsAnimals(t *testing.T) {
	s := newTestSim(t)
	colonists, err := s.SeedColony("colonist", 1, "horse", 0)
	require.NoError(t, err)
	c := colonists[0]

	require.NoError(t, s.SetDrafted(c.ID, true))
	assert.True(t, c.Drafted)
	s.TickMinute(1)
	assert.Equal(t, jobs.DefWaitStill, s.Tracker(c.ID).CurrentDef())

	assert.ErrorIs(t, s.SetDrafted(12345, true), ErrUnknownAgent)
}

func TestCaravanLifecycle(t *testing.T) {
	s := newTestSim(t)
	g, err := s.SpawnParty(PartySpec{FactionID: 2, Kind: "trader", Count: 2}, 0)
	require.NoError(t, err)

	// Teleport the traders to camp.
	for _, m := range g.Members {
		s.Agent(agents.AgentID(m)).Position = g.Rally
	}
	s.TickHour(TicksPerSimHour)
	assert.Equal(t, social.PhaseDefendTraderCaravan, g.Phase)
	assert.Equal(t, uint64(TicksPerSimHour), g.Since)

	s.TickHour(TicksPerSimHour + stayTicks)
	assert.Equal(t, social.PhaseExitMap, g.Phase)
	assert.NotEmpty(t, s.Events)
}

func TestRaidAssaultsOnArrival(t *testing.T) {
	s := newTestSim(t)
	g, err := s.SpawnParty(PartySpec{FactionID: 3, Kind: "raider", Count: 1}, 0)
	require.NoError(t, err)
	s.run(0, 1)
	for _, m := range g.Members {
		s.Agent(agents.AgentID(m)).Position = g.Rally
	}
	s.TickHour(TicksPerSimHour)
	assert.Equal(t, social.PhaseAssault, g.Phase)

	// The sweep leaves the carrying horse alone.
	rides := s.RideViews()
	require.Len(t, rides, 1)
	assert.Equal(t, "riding", rides[0].State)
}

func TestExitAndPrune(t *testing.T) {
	s := newTestSim(t)
	g, err := s.SpawnParty(PartySpec{FactionID: 2, Kind: "trader", Count: 1}, 0)
	require.NoError(t, err)
	var trader *agents.Agent
	for _, m := range g.Members {
		if a := s.Agent(agents.AgentID(m)); a.Species == "human" {
			trader = a
		}
	}
	require.NotNil(t, trader)

	rec, _ := s.Store.Lookup(trader.ID)
	horse := s.Agent(rec.Mount())
	s.Rides.Dismount(trader, horse, trader.Position)
	s.ExitMap(trader, s.WorldMap.ClosestEdge(trader.Position))
	s.ExitMap(horse, s.WorldMap.ClosestEdge(horse.Position))
	assert.False(t, trader.Spawned)
	assert.Nil(t, trader.GroupID)
	assert.Empty(t, g.Members)

	s.TickDay(TicksPerSimDay)
	assert.Nil(t, s.Agent(trader.ID))
	assert.Nil(t, s.Agent(horse.ID))
	_, ok := s.Store.Lookup(trader.ID)
	assert.False(t, ok)
	assert.Empty(t, s.Agents)
}

func TestSnapshotRestoreResumesRides(t *testing.T) {
	s := newTestSim(t)
	_, err := s.SpawnParty(PartySpec{FactionID: 3, Kind: "raider", Count: 2, Points: 500}, 0)
	require.NoError(t, err)
	s.run(0, 5)
	st := s.Snapshot()
	require.Len(t, st.Riding, 4, "two riders and two mounts")

	restored := newTestSim(t)
	require.NoError(t, restored.Restore(st))
	assert.Equal(t, uint64(5), restored.CurrentTick())
	assert.Len(t, restored.RideViews(), 2)
	assert.Greater(t, restored.Spawner.NextID(), st.Agents[len(st.Agents)-1].ID)
	require.NoError(t, restored.Store.Validate())
}

func TestAgentDetail(t *testing.T) {
	s := newTestSim(t)
	colonists, err := s.SeedColony("colonist", 1, "horse", 0)
	require.NoError(t, err)

	v, ok := s.AgentDetail(colonists[0].ID)
	require.True(t, ok)
	require.NotNil(t, v.Riding)
	assert.NotNil(t, v.Riding.ReservedMount)

	_, ok = s.AgentDetail(4242)
	assert.False(t, ok)
}

func TestUpdateStats(t *testing.T) {
	s := newTestSim(t)
	_, err := s.SpawnParty(PartySpec{FactionID: 3, Kind: "raider", Count: 2}, 0)
	require.NoError(t, err)
	s.updateStats()
	assert.Equal(t, 4, s.Stats.Population)
	assert.Equal(t, 2, s.Stats.Riders)
	assert.Equal(t, 1, s.Stats.Groups)
}
