package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/config"
	"github.com/talgya/cavalry/internal/entropy"
	"github.com/talgya/cavalry/internal/extdata"
	"github.com/talgya/cavalry/internal/jobs"
	"github.com/talgya/cavalry/internal/metrics"
	"github.com/talgya/cavalry/internal/mount"
	"github.com/talgya/cavalry/internal/social"
	"github.com/talgya/cavalry/internal/world"
)

const maxEvents = 1000

var (
	// ErrUnknownAgent means no agent has the requested id.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrUnknownFaction means no faction has the requested id.
	ErrUnknownFaction = errors.New("unknown faction")
	// ErrUnknownKind means the catalog has no such kind.
	ErrUnknownKind = errors.New("unknown kind")
	// ErrNoEntry means no standable map edge cell could be found.
	ErrNoEntry = errors.New("no standable entry cell")
)

// Options configures a new Simulation.
type Options struct {
	Map      *world.Map
	Catalog  *agents.Catalog
	Factions []*social.Faction
	Settings *config.Settings
	Metrics  *metrics.Recorder
	Seed     int64
}

// Simulation holds the complete world state and wires systems together.
// Callers running it alongside readers hold Mu around every tick and read.
type Simulation struct {
	Mu sync.Mutex

	WorldMap *world.Map
	Agents   []*agents.Agent // Spawn order, which is ID order
	Factions []*social.Faction
	Groups   map[social.GroupID]*social.Group
	Events   []Event
	LastTick uint64
	Season   world.Season
	Stats    SimStats

	Store    *extdata.Store
	Rides    *mount.Coordinator
	Spawner  *agents.Spawner
	Catalog  *agents.Catalog
	Settings *config.Settings
	Metrics  *metrics.Recorder

	index     map[agents.AgentID]*agents.Agent
	trackers  map[agents.AgentID]*jobs.Tracker
	factions  map[social.FactionID]*social.Faction
	registry  *jobs.Registry
	hooks     jobs.Hooks
	rng       entropy.Source
	nextGroup social.GroupID
}

// Event is a notable occurrence in the world.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "ride", "raid", "caravan", "colony", "season"
}

// SimStats tracks aggregate world statistics, refreshed every sim-hour.
type SimStats struct {
	Population    int `json:"population"`
	Present       int `json:"present"`
	Riders        int `json:"riders"`
	WaitingMounts int `json:"waiting_mounts"`
	Groups        int `json:"groups"`
	Downed        int `json:"downed"`
}

// NewSimulation builds an empty world on the given map and installs the
// riding rules.
func NewSimulation(opts Options) *Simulation {
	settings := opts.Settings
	if settings == nil {
		def := config.DefaultSettings()
		settings = &def
	}
	factions := opts.Factions
	if len(factions) == 0 {
		factions = social.SeedFactions()
	}

	s := &Simulation{
		WorldMap: opts.Map,
		Factions: factions,
		Groups:   make(map[social.GroupID]*social.Group),
		Store:    extdata.NewStore(),
		Spawner:  agents.NewSpawner(opts.Seed, opts.Catalog),
		Catalog:  opts.Catalog,
		Settings: settings,
		Metrics:  opts.Metrics,
		index:    make(map[agents.AgentID]*agents.Agent),
		trackers: make(map[agents.AgentID]*jobs.Tracker),
		factions: make(map[social.FactionID]*social.Faction, len(factions)),
		registry: jobs.NewRegistry(),
		rng:      entropy.New(opts.Seed + 500),
	}
	for _, f := range factions {
		s.factions[f.ID] = f
	}

	s.Rides = &mount.Coordinator{
		World:    s,
		Store:    s.Store,
		Catalog:  opts.Catalog,
		Spawner:  s.Spawner,
		Settings: settings,
		Metrics:  opts.Metrics,
		Rand:     entropy.New(opts.Seed + 600),
	}
	s.Rides.Register(s.registry)
	s.registerDrivers()
	s.hooks = s.Rides.Hooks()
	return s
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.LastTick
}

// EmitEvent records a notable occurrence.
func (s *Simulation) EmitEvent(category, format string, args ...any) {
	s.Events = append(s.Events, Event{
		Tick:        s.LastTick,
		Description: fmt.Sprintf(format, args...),
		Category:    category,
	})
}

// ── mount.World ─────────────────────────────────────────────────────────

// Agent returns the agent with the id, or nil.
func (s *Simulation) Agent(id agents.AgentID) *agents.Agent {
	return s.index[id]
}

// Tracker returns the agent's scheduler, or nil.
func (s *Simulation) Tracker(id agents.AgentID) *jobs.Tracker {
	return s.trackers[id]
}

// Map returns the world map.
func (s *Simulation) Map() *world.Map {
	return s.WorldMap
}

// Faction returns the faction with the id, or nil.
func (s *Simulation) Faction(id social.FactionID) *social.Faction {
	return s.factions[id]
}

// PlayerFaction returns the faction the user controls, or nil.
func (s *Simulation) PlayerFaction() *social.Faction {
	for _, f := range s.Factions {
		if f.Player {
			return f
		}
	}
	return nil
}

// GroupOf returns the travel group the agent belongs to, or nil.
func (s *Simulation) GroupOf(a *agents.Agent) *social.Group {
	if a == nil || a.GroupID == nil {
		return nil
	}
	return s.Groups[*a.GroupID]
}

func (s *Simulation) factionOf(a *agents.Agent) *social.Faction {
	if a == nil || a.FactionID == nil {
		return nil
	}
	return s.factions[*a.FactionID]
}

// HostileTo reports whether a treats b as an enemy. Agents without a
// faction are never hostile.
func (s *Simulation) HostileTo(a, b *agents.Agent) bool {
	return s.factionOf(a).HostileTo(s.factionOf(b))
}

// Occupied reports whether a spawned agent not in ignore stands on cell.
func (s *Simulation) Occupied(cell world.HexCoord, ignore ...agents.AgentID) bool {
	for _, a := range s.Agents {
		if !a.Spawned || a.Position != cell {
			continue
		}
		skip := false
		for _, id := range ignore {
			if id == a.ID {
				skip = true
				break
			}
		}
		if !skip {
			return true
		}
	}
	return false
}

// Spawn places an agent on the map, registering it and giving it a
// scheduler the first time it is seen.
func (s *Simulation) Spawn(a *agents.Agent) {
	a.Spawned = true
	if _, ok := s.index[a.ID]; !ok {
		s.index[a.ID] = a
		s.Agents = append(s.Agents, a)
		if len(s.Agents) > 1 && s.Agents[len(s.Agents)-2].ID > a.ID {
			sort.Slice(s.Agents, func(i, j int) bool { return s.Agents[i].ID < s.Agents[j].ID })
		}
	}
	if _, ok := s.trackers[a.ID]; !ok {
		s.trackers[a.ID] = jobs.NewTracker(a.ID, s.registry, jobs.ThinkFunc(s.think), s.hooks)
	}
}

// ExitMap takes an agent off the map through an edge cell. The agent keeps
// its records and may come back later.
func (s *Simulation) ExitMap(a *agents.Agent, at world.HexCoord) {
	a.Position = at
	a.Spawned = false
	a.Path.StopDead()
	if g := s.GroupOf(a); g != nil {
		g.Remove(uint64(a.ID))
	}
	a.GroupID = nil
	if s.Settings.Logging {
		slog.Info("agent left the map", "agent", a.ID, "name", a.Name, "at", at)
	}
}

// ── ticks ───────────────────────────────────────────────────────────────

// TickMinute runs every agent's scheduler once, then moves it. Agents are
// visited in ID order so riders move before the mounts that mirror them.
func (s *Simulation) TickMinute(tick uint64) {
	start := time.Now()
	s.LastTick = tick

	n := len(s.Agents)
	for i := 0; i < n; i++ {
		a := s.Agents[i]
		if !a.Present() {
			continue
		}
		if t := s.trackers[a.ID]; t != nil {
			t.Tick(tick)
		}
		if a.Present() {
			s.move(a, tick)
		}
	}

	s.Metrics.ObserveTick(time.Since(start))
}

// TickHour advances travel groups and refreshes the stats.
func (s *Simulation) TickHour(tick uint64) {
	s.advanceGroups(tick)
	s.updateStats()
}

// TickDay forgets visitors that have left for good and trims the event log.
func (s *Simulation) TickDay(tick uint64) {
	s.pruneDeparted()
	if len(s.Events) > maxEvents {
		s.Events = append([]Event(nil), s.Events[len(s.Events)-maxEvents:]...)
	}
	if err := s.Store.Validate(); err != nil {
		slog.Warn("riding records inconsistent", "tick", tick, "error", err)
	}
}

// TickSeason turns the season.
func (s *Simulation) TickSeason(tick uint64) {
	s.Season = SeasonAt(tick)
	s.EmitEvent("season", "%s begins", world.SeasonName(s.Season))
	slog.Info("season changed", "season", world.SeasonName(s.Season), "tick", tick)
}

// pruneDeparted drops off-map agents that are not colonists and not
// travelling with an off-map caravan.
func (s *Simulation) pruneDeparted() {
	kept := s.Agents[:0]
	for _, a := range s.Agents {
		if a.Spawned || a.Colonist || a.CaravanID != nil {
			kept = append(kept, a)
			continue
		}
		delete(s.index, a.ID)
		delete(s.trackers, a.ID)
		s.Store.Prune(a.ID)
	}
	for i := len(kept); i < len(s.Agents); i++ {
		s.Agents[i] = nil
	}
	s.Agents = kept
}

func (s *Simulation) updateStats() {
	var st SimStats
	for _, a := range s.Agents {
		st.Population++
		if !a.Present() {
			continue
		}
		st.Present++
		if a.Downed {
			st.Downed++
		}
		if rec, ok := s.Store.Lookup(a.ID); ok && rec.Mounted() {
			st.Riders++
		}
		if t := s.trackers[a.ID]; t != nil {
			if d, ok := t.Driver().(*mount.MountedDriver); ok && d.Waiting() {
				st.WaitingMounts++
			}
		}
	}
	st.Groups = len(s.Groups)
	s.Stats = st
}

// ── commands ────────────────────────────────────────────────────────────

// SetDrafted puts a colonist under or out of direct command. Drafting ends
// its current job and calls its trained animals to it.
func (s *Simulation) SetDrafted(id agents.AgentID, drafted bool) error {
	a := s.index[id]
	if a == nil {
		return fmt.Errorf("draft %d: %w", id, ErrUnknownAgent)
	}
	if a.Drafted == drafted {
		return nil
	}
	a.Drafted = drafted
	if t := s.trackers[id]; t != nil {
		t.EndCurrentJob(jobs.InterruptForced, true)
	}
	if !drafted {
		return nil
	}
	for _, animal := range s.Agents {
		if !animal.Present() || !animal.Trained || !agents.SameFaction(a, animal) {
			continue
		}
		if rec, ok := s.Store.Lookup(animal.ID); !ok || rec.ReservedBy() != id {
			continue
		}
		if t := s.trackers[animal.ID]; t != nil {
			t.NotifyMasterDrafted()
		}
	}
	return nil
}

// Order gives an agent a job that replaces whatever it was doing.
func (s *Simulation) Order(id agents.AgentID, job *jobs.Job) error {
	t := s.trackers[id]
	if t == nil {
		return fmt.Errorf("order %d: %w", id, ErrUnknownAgent)
	}
	if !t.TryTakeOrderedJob(job) {
		return fmt.Errorf("order %d: %s refused", id, job.Def)
	}
	return nil
}
