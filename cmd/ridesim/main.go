// Command ridesim runs the mounted-riders simulation: a colony with its
// animals, raiding parties and caravans that ride in from the map edge.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/api"
	"github.com/talgya/cavalry/internal/config"
	"github.com/talgya/cavalry/internal/engine"
	"github.com/talgya/cavalry/internal/metrics"
	"github.com/talgya/cavalry/internal/persistence"
	"github.com/talgya/cavalry/internal/social"
	"github.com/talgya/cavalry/internal/world"
)

func main() {
	configPath := flag.String("config", os.Getenv("RIDESIM_CONFIG"), "path to YAML config")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath); err != nil {
		slog.Error("ridesim failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("Cavalry: mounted riders simulation", "config", configPath)

	catalog, err := agents.LoadCatalog(cfg.Server.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	var factions []*social.Faction
	if cfg.Server.FactionsPath != "" {
		if factions, err = social.LoadFactions(cfg.Server.FactionsPath); err != nil {
			return fmt.Errorf("load factions: %w", err)
		}
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.Server.DBPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	worldID, err := db.WorldID()
	if err != nil {
		return fmt.Errorf("world id: %w", err)
	}
	slog.Info("database opened", "path", cfg.Server.DBPath, "world", worldID)

	// ── World Map (regenerated from the saved seed) ───────────────────
	seed, err := worldSeed(db, cfg.World.Seed)
	if err != nil {
		return err
	}
	gen := cfg.World
	gen.Seed = seed
	worldMap := world.Generate(gen)
	for t, c := range world.TerrainCounts(worldMap) {
		slog.Debug("terrain", "type", world.TerrainName(t), "count", c)
	}

	// ── Simulation ────────────────────────────────────────────────────
	recorder := metrics.NewRecorder()
	sim := engine.NewSimulation(engine.Options{
		Map:      worldMap,
		Catalog:  catalog,
		Factions: factions,
		Settings: &cfg.Sim,
		Metrics:  recorder,
		Seed:     seed,
	})

	if db.HasWorldState() {
		slog.Info("found saved world state, loading...")
		st, zones, err := db.LoadWorldState()
		if err != nil {
			return fmt.Errorf("load world: %w", err)
		}
		for _, z := range zones {
			worldMap.AddZone(z)
		}
		if err := sim.Restore(st); err != nil {
			return fmt.Errorf("restore world: %w", err)
		}
	} else {
		slog.Info("no saved state found, seeding a new colony...")
		if err := seedWorld(sim, cfg); err != nil {
			return err
		}
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	slog.Info("world ready", "agents", len(sim.Agents), "groups", len(sim.Groups), "hexes", worldMap.HexCount())

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(cfg.Server.TicksPerSec)
	eng.Tick = sim.CurrentTick()

	saveEvery := cfg.Server.SaveEvery
	eng.OnTick = func(tick uint64) {
		sim.Mu.Lock()
		defer sim.Mu.Unlock()
		sim.TickMinute(tick)
		if saveEvery > 0 && tick%saveEvery == 0 {
			if err := db.SaveWorldState(sim); err != nil {
				slog.Error("autosave failed", "error", err)
			}
		}
	}
	eng.OnHour = locked(sim, sim.TickHour)
	eng.OnDay = locked(sim, sim.TickDay)
	eng.OnSeason = locked(sim, sim.TickSeason)

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Server.AdminKey == "" {
		slog.Warn("RIDESIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     cfg.Server.Port,
		AdminKey: cfg.Server.AdminKey,
	}
	httpSrv := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nCavalry is riding: %d agents on %d hexes.\n", len(sim.Agents), worldMap.HexCount())
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Server.Port)
	if eng.Tick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", eng.Tick, engine.SimTime(eng.Tick))
	}

	eng.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	sim.Mu.Lock()
	defer sim.Mu.Unlock()
	if err := db.SaveWorldState(sim); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	fmt.Println("Simulation stopped. World state saved.")
	return nil
}

// worldSeed returns the seed the saved world was generated from, picking
// and recording one on first run when the config leaves it at zero.
func worldSeed(db *persistence.DB, configured int64) (int64, error) {
	if v, err := db.GetMeta("seed"); err == nil {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return seed, nil
		}
	}
	seed := configured
	if seed == 0 {
		seed = rand.Int63()
	}
	if err := db.SaveMeta("seed", strconv.FormatInt(seed, 10)); err != nil {
		return 0, fmt.Errorf("save seed: %w", err)
	}
	return seed, nil
}

// seedWorld places the colony and sends the first raiding party in.
func seedWorld(sim *engine.Simulation, cfg config.Config) error {
	if cfg.Colony.Count > 0 {
		colonists, err := sim.SeedColony(cfg.Colony.Kind, cfg.Colony.Count, cfg.Colony.MountSpecies, 0)
		if err != nil {
			return fmt.Errorf("seed colony: %w", err)
		}
		slog.Info("colony founded", "colonists", len(colonists))
	}
	if cfg.Raid.Count > 0 {
		g, err := sim.SpawnParty(engine.PartySpec{
			FactionID: cfg.Raid.FactionID,
			Kind:      cfg.Raid.Kind,
			Count:     cfg.Raid.Count,
			Points:    cfg.Raid.Points,
		}, 0)
		if err != nil {
			return fmt.Errorf("spawn raid: %w", err)
		}
		slog.Info("raiding party inbound", "group", g.ID, "members", len(g.Members))
	}
	return nil
}

func locked(sim *engine.Simulation, fn func(uint64)) func(uint64) {
	return func(tick uint64) {
		sim.Mu.Lock()
		defer sim.Mu.Unlock()
		fn(tick)
	}
}
