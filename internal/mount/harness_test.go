package mount

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/config"
	"github.com/talgya/cavalry/internal/entropy"
	"github.com/talgya/cavalry/internal/extdata"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/metrics"
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
    melee_range: 1
  - id: donkey
    name: Donkey
    mountable: true
    market_value: 200
    riding_speed: 1
  - id: elk
    name: Elk
    wild: true
    mountable: true
    wildness: 0.5
    combat_power: 90
    commonality:
      plains: 0.4
  - id: boar
    name: Boar
    wild: true
    commonality:
      plains: 0.6
kinds:
  - id: raider
    species: human
  - id: slave
    species: human
    slave: true
  - id: horse_archer
    species: human
    custom_mounts:
      chance: 100
      mounts:
        - species: horse
          weight: 1
`

const (
	playerFaction  social.FactionID = 1
	tribeFaction   social.FactionID = 2
	raiderFaction  social.FactionID = 3
	machineFaction social.FactionID = 4
)

// holdDriver keeps its job going until something else ends it.
type holdDriver struct{}

func (holdDriver) Tick(uint64) (jobs.Condition, bool) { return jobs.Ongoing, false }
func (holdDriver) Finish(jobs.Condition)              {}

// fakeWorld is a minimal host simulation. Agents never walk on their own;
// tests move them by hand.
type fakeWorld struct {
	agents   map[agents.AgentID]*agents.Agent
	trackers map[agents.AgentID]*jobs.Tracker
	next     map[agents.AgentID]*jobs.Job
	m        *world.Map
	factions map[social.FactionID]*social.Faction
	groups   map[social.GroupID]*social.Group
	registry *jobs.Registry
	hooks    jobs.Hooks
	nextID   agents.AgentID
	exited   []agents.AgentID
	tick     uint64
}

func (w *fakeWorld) Agent(id agents.AgentID) *agents.Agent   { return w.agents[id] }
func (w *fakeWorld) Tracker(id agents.AgentID) *jobs.Tracker { return w.trackers[id] }
func (w *fakeWorld) Map() *world.Map                         { return w.m }

func (w *fakeWorld) Faction(id social.FactionID) *social.Faction { return w.factions[id] }
func (w *fakeWorld) PlayerFaction() *social.Faction              { return w.factions[playerFaction] }

func (w *fakeWorld) GroupOf(a *agents.Agent) *social.Group {
	if a.GroupID == nil {
		return nil
	}
	return w.groups[*a.GroupID]
}

func (w *fakeWorld) factionOf(a *agents.Agent) *social.Faction {
	if a.FactionID == nil {
		return nil
	}
	return w.factions[*a.FactionID]
}

func (w *fakeWorld) HostileTo(a, b *agents.Agent) bool {
	return w.factionOf(a).HostileTo(w.factionOf(b))
}

func (w *fakeWorld) Occupied(cell world.HexCoord, ignore ...agents.AgentID) bool {
	for id, a := range w.agents {
		if !a.Spawned || a.Position != cell {
			continue
		}
		skip := false
		for _, ig := range ignore {
			skip = skip || ig == id
		}
		if !skip {
			return true
		}
	}
	return false
}

func (w *fakeWorld) Spawn(a *agents.Agent) {
	a.Spawned = true
	w.agents[a.ID] = a
	id := a.ID
	think := jobs.ThinkFunc(func(*jobs.Tracker) jobs.ThinkResult {
		job := w.next[id]
		delete(w.next, id)
		return jobs.ThinkResult{Job: job, SourceNode: "test", Tag: "chosen"}
	})
	w.trackers[id] = jobs.NewTracker(id, w.registry, think, w.hooks)
}

func (w *fakeWorld) ExitMap(a *agents.Agent, at world.HexCoord) {
	a.Position = at
	a.Spawned = false
	w.exited = append(w.exited, a.ID)
}

// add places a new agent of the given species and kind.
func (w *fakeWorld) add(species, kind string, faction social.FactionID, at world.HexCoord) *agents.Agent {
	w.nextID++
	fid := faction
	a := &agents.Agent{
		ID:        w.nextID,
		Name:      species,
		Species:   species,
		Kind:      kind,
		Position:  at,
		Alive:     true,
		FactionID: &fid,
	}
	w.Spawn(a)
	return a
}

func (w *fakeWorld) rider(faction social.FactionID, at world.HexCoord) *agents.Agent {
	return w.add("human", "raider", faction, at)
}

func (w *fakeWorld) horse(faction social.FactionID, at world.HexCoord) *agents.Agent {
	a := w.add("horse", "horse", faction, at)
	a.Trained = true
	return a
}

// step ticks every spawned agent once, in ID order.
func (w *fakeWorld) step() {
	w.tick++
	ids := make([]agents.AgentID, 0, len(w.trackers))
	for id := range w.trackers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if a := w.agents[id]; a != nil && a.Spawned && a.Alive {
			w.trackers[id].Tick(w.tick)
		}
	}
}

func (w *fakeWorld) steps(n int) {
	for i := 0; i < n; i++ {
		w.step()
	}
}

func newHarness(t *testing.T) (*Coordinator, *fakeWorld) {
	t.Helper()
	cat, err := agents.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	factions := make(map[social.FactionID]*social.Faction)
	for _, f := range social.SeedFactions() {
		factions[f.ID] = f
	}
	w := &fakeWorld{
		agents:   make(map[agents.AgentID]*agents.Agent),
		trackers: make(map[agents.AgentID]*jobs.Tracker),
		next:     make(map[agents.AgentID]*jobs.Job),
		m:        world.NewFlatMap(20, world.TerrainPlains),
		factions: factions,
		groups:   make(map[social.GroupID]*social.Group),
		nextID:   1000, // Clear of the spawner's ids
	}

	settings := config.DefaultSettings()
	c := &Coordinator{
		World:    w,
		Store:    extdata.NewStore(),
		Catalog:  cat,
		Spawner:  agents.NewSpawner(1, cat),
		Settings: &settings,
		Metrics:  metrics.NewRecorder(),
		Rand:     entropy.NewSeeded(7),
	}

	reg := jobs.NewRegistry()
	c.Register(reg)
	for _, def := range []jobs.Def{jobs.DefGoto, jobs.DefWait, jobs.DefWander, jobs.DefWork, jobs.DefAttack} {
		reg.Register(def, func(*jobs.Tracker, *jobs.Job) jobs.Driver { return holdDriver{} })
	}
	w.registry = reg
	w.hooks = c.Hooks()
	return c, w
}

// couple seats rider on mount in the store and returns a fresh session
// whose next check runs the full decision tree.
func couple(c *Coordinator, rider, mount *agents.Agent) *RideSession {
	c.Store.Mount(rider.ID, mount.ID)
	c.Store.Reserve(rider.ID, mount.ID)
	rec, _ := c.Store.Lookup(rider.ID)
	return &RideSession{Rider: rider.ID, RiderData: rec.Entry(), Ticker: 1}
}

// ride couples rider and mount instantly and lets the mount pick it up.
func ride(t *testing.T, c *Coordinator, w *fakeWorld, rider, mount *agents.Agent) *MountedDriver {
	t.Helper()
	_, err := c.GiveMountJob(rider, mount, Instant, nil, nil)
	require.NoError(t, err)
	w.step()
	d, ok := w.trackers[mount.ID].Driver().(*MountedDriver)
	require.True(t, ok, "mount should be running the ride")
	require.True(t, d.Riding())
	return d
}

// startJob makes the agent's current job def, headed for cell.
func startJob(t *testing.T, w *fakeWorld, a *agents.Agent, def jobs.Def, cell world.HexCoord) {
	t.Helper()
	require.True(t, w.trackers[a.ID].StartJob(jobs.NewCellJob(def, cell), jobs.InterruptForced))
	a.Path.StartPath(cell)
}
