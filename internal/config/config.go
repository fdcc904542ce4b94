// Package config loads the ridesim configuration: riding settings, world
// generation parameters and server options. Values come from an optional
// YAML file and are then overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/talgya/cavalry/internal/world"
)

// Settings are the riding rules the simulation reads every tick.
type Settings struct {
	CaravansEnabled    bool `yaml:"caravans_enabled"`      // Travel groups ride in and out
	RideAndRollEnabled bool `yaml:"ride_and_roll_enabled"` // Player riders ride to work

	EnemyMountChance       int `yaml:"enemy_mount_chance"`                // Percent, industrial and above
	EnemyMountChancePreInd int `yaml:"enemy_mount_chance_pre_industrial"` // Percent, below industrial

	InBiomeWeight  int `yaml:"in_biome_weight"`
	OutBiomeWeight int `yaml:"out_biome_weight"`
	NonWildWeight  int `yaml:"non_wild_weight"`

	MinHandlingLevel  int `yaml:"min_handling_level"`
	AutoHitchDistance int `yaml:"auto_hitch_distance"`
	HitchSearchRadius int `yaml:"hitch_search_radius"`
	HitchSearchTries  int `yaml:"hitch_search_tries"`
	AutoMountDistance int `yaml:"auto_mount_distance"`

	// AllowedJobs may be done from the saddle.
	AllowedJobs []string `yaml:"allowed_jobs"`

	Logging bool `yaml:"logging"`
}

// JobAllowed reports whether a job definition may be done while mounted.
func (s *Settings) JobAllowed(def string) bool {
	for _, j := range s.AllowedJobs {
		if j == def {
			return true
		}
	}
	return false
}

// ServerConfig controls the HTTP API and the database.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	AdminKey     string `yaml:"admin_key"`
	DBPath       string `yaml:"db_path"`
	CatalogPath  string `yaml:"catalog_path"`
	FactionsPath string `yaml:"factions_path"`
	TicksPerSec  int    `yaml:"ticks_per_second"`
	SaveEvery    uint64 `yaml:"save_every_ticks"`
}

// Config is the complete configuration.
type Config struct {
	Sim    Settings        `yaml:"sim"`
	World  world.GenConfig `yaml:"world"`
	Server ServerConfig    `yaml:"server"`
	Raid   RaidConfig      `yaml:"raid"`
	Colony ColonyConfig    `yaml:"colony"`
}

// RaidConfig describes the raiding party spawned into a fresh world.
type RaidConfig struct {
	Kind      string  `yaml:"kind"`
	Count     int     `yaml:"count"`
	FactionID uint64  `yaml:"faction_id"`
	Points    float64 `yaml:"points"` // Threat budget
}

// ColonyConfig describes the player's starting colonists. Each colonist
// gets one trained animal of MountSpecies reserved for it.
type ColonyConfig struct {
	Kind         string `yaml:"kind"`
	Count        int    `yaml:"count"`
	MountSpecies string `yaml:"mount_species"`
}

// DefaultSettings returns the stock riding rules.
func DefaultSettings() Settings {
	return Settings{
		CaravansEnabled:        true,
		RideAndRollEnabled:     true,
		EnemyMountChance:       20,
		EnemyMountChancePreInd: 33,
		InBiomeWeight:          20,
		OutBiomeWeight:         10,
		NonWildWeight:          70,
		MinHandlingLevel:       15,
		AutoHitchDistance:      50,
		HitchSearchRadius:      4,
		HitchSearchTries:       16,
		AutoMountDistance:      16,
		AllowedJobs:            []string{"goto", "wander", "wait", "follow", "attack", "exit_map", "wait_still", "social", "vomit", "mount", "dismount"},
	}
}

// Default returns a complete configuration with stock values.
func Default() Config {
	return Config{
		Sim:   DefaultSettings(),
		World: world.DefaultGenConfig(),
		Server: ServerConfig{
			Port:         8080,
			DBPath:       "data/ridesim.db",
			CatalogPath:  "configs/catalog.yaml",
			FactionsPath: "configs/factions.yaml",
			TicksPerSec:  60,
			SaveEvery:    3600,
		},
		Raid: RaidConfig{
			Kind:      "raider",
			Count:     5,
			FactionID: 3,
			Points:    500,
		},
		Colony: ColonyConfig{
			Kind:         "colonist",
			Count:        3,
			MountSpecies: "horse",
		},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from RIDESIM_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	c.Server.DBPath = envOrDefault(getenv, "RIDESIM_DB", c.Server.DBPath)
	c.Server.AdminKey = envOrDefault(getenv, "RIDESIM_ADMIN_KEY", c.Server.AdminKey)
	if v := getenv("RIDESIM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RIDESIM_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("RIDESIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("RIDESIM_SEED: %w", err)
		}
		c.World.Seed = seed
	}
	return nil
}

func envOrDefault(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	s := c.Sim
	for name, v := range map[string]int{
		"enemy_mount_chance":                s.EnemyMountChance,
		"enemy_mount_chance_pre_industrial": s.EnemyMountChancePreInd,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("%s must be within 0..100, got %d", name, v))
		}
	}
	for name, v := range map[string]int{
		"in_biome_weight":     s.InBiomeWeight,
		"out_biome_weight":    s.OutBiomeWeight,
		"non_wild_weight":     s.NonWildWeight,
		"min_handling_level":  s.MinHandlingLevel,
		"auto_hitch_distance": s.AutoHitchDistance,
		"auto_mount_distance": s.AutoMountDistance,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	if s.HitchSearchRadius <= 0 {
		errs = append(errs, fmt.Errorf("hitch_search_radius must be positive, got %d", s.HitchSearchRadius))
	}
	if s.HitchSearchTries <= 0 {
		errs = append(errs, fmt.Errorf("hitch_search_tries must be positive, got %d", s.HitchSearchTries))
	}
	if c.World.Radius <= 0 {
		errs = append(errs, fmt.Errorf("world radius must be positive, got %d", c.World.Radius))
	}
	if t, ok := world.ParseTerrain(c.World.Biome); !ok || t == world.TerrainOcean {
		errs = append(errs, fmt.Errorf("unknown map biome %q", c.World.Biome))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Server.Port))
	}
	if c.Raid.Count < 0 || c.Colony.Count < 0 {
		errs = append(errs, fmt.Errorf("raid and colony counts must not be negative"))
	}
	if c.Server.TicksPerSec <= 0 {
		errs = append(errs, fmt.Errorf("ticks_per_second must be positive, got %d", c.Server.TicksPerSec))
	}
	return errors.Join(errs...)
}
