// Package persistence provides SQLite-based world state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/cavalry/internal/agents"
	"github.com/talgya/cavalry/internal/engine"
	"github.com/talgya/cavalry/internal/extdata"
	"github.com/talgya/cavalry/internal/social"
	"github.com/talgya/cavalry/internal/world"
)

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY,
		species TEXT NOT NULL,
		kind TEXT NOT NULL,
		faction_id INTEGER,
		spawned INTEGER NOT NULL,
		data_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ext_agent_data (
		id INTEGER PRIMARY KEY,
		mount INTEGER,
		reserved_mount INTEGER,
		reserved_by INTEGER
	);

	CREATE TABLE IF NOT EXISTS zones (
		label TEXT PRIMARY KEY,
		color_r INTEGER NOT NULL,
		color_g INTEGER NOT NULL,
		color_b INTEGER NOT NULL,
		pen INTEGER NOT NULL,
		cells_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS groups (
		id INTEGER PRIMARY KEY,
		faction_id INTEGER NOT NULL,
		phase INTEGER NOT NULL,
		rally_q INTEGER NOT NULL,
		rally_r INTEGER NOT NULL,
		since INTEGER NOT NULL,
		members_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_agents_spawned ON agents(spawned);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveAgents writes all agents to the database (full replace).
func (db *DB) SaveAgents(list []*agents.Agent) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM agents"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO agents
		(id, species, kind, faction_id, spawned, data_json)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range list {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode agent %d: %w", a.ID, err)
		}
		spawned := 0
		if a.Spawned {
			spawned = 1
		}
		if _, err := stmt.Exec(a.ID, a.Species, a.Kind, a.FactionID, spawned, string(data)); err != nil {
			return fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// LoadAgents reads every saved agent in ID order.
func (db *DB) LoadAgents() ([]*agents.Agent, error) {
	var rows []string
	if err := db.conn.Select(&rows, "SELECT data_json FROM agents ORDER BY id"); err != nil {
		return nil, err
	}
	out := make([]*agents.Agent, 0, len(rows))
	for _, raw := range rows {
		var a agents.Agent
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("decode agent: %w", err)
		}
		out = append(out, &a)
	}
	return out, nil
}

// SaveRiding replaces the riding records.
func (db *DB) SaveRiding(entries []extdata.Entry) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM ext_agent_data"); err != nil {
		return err
	}
	for _, e := range entries {
		_, err := tx.NamedExec(`INSERT INTO ext_agent_data (id, mount, reserved_mount, reserved_by)
			VALUES (:id, :mount, :reserved_mount, :reserved_by)`, e)
		if err != nil {
			return fmt.Errorf("insert riding record %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// LoadRiding reads the riding records in ID order.
func (db *DB) LoadRiding() ([]extdata.Entry, error) {
	var entries []extdata.Entry
	err := db.conn.Select(&entries,
		"SELECT id, mount, reserved_mount, reserved_by FROM ext_agent_data ORDER BY id")
	return entries, err
}

type zoneRow struct {
	Label     string `db:"label"`
	R         uint8  `db:"color_r"`
	G         uint8  `db:"color_g"`
	B         uint8  `db:"color_b"`
	Pen       bool   `db:"pen"`
	CellsJSON string `db:"cells_json"`
}

// SaveZones replaces the map's painted zones.
func (db *DB) SaveZones(zones []*world.Zone) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM zones"); err != nil {
		return err
	}
	for _, z := range zones {
		cells, err := json.Marshal(z.CellList())
		if err != nil {
			return fmt.Errorf("encode zone %q: %w", z.Label, err)
		}
		row := zoneRow{Label: z.Label, R: z.Color.R, G: z.Color.G, B: z.Color.B, Pen: z.Pen, CellsJSON: string(cells)}
		_, err = tx.NamedExec(`INSERT INTO zones (label, color_r, color_g, color_b, pen, cells_json)
			VALUES (:label, :color_r, :color_g, :color_b, :pen, :cells_json)`, row)
		if err != nil {
			return fmt.Errorf("insert zone %q: %w", z.Label, err)
		}
	}
	return tx.Commit()
}

// LoadZones reads the painted zones sorted by label.
func (db *DB) LoadZones() ([]*world.Zone, error) {
	var rows []zoneRow
	if err := db.conn.Select(&rows, "SELECT * FROM zones ORDER BY label"); err != nil {
		return nil, err
	}
	out := make([]*world.Zone, 0, len(rows))
	for _, r := range rows {
		var cells []world.HexCoord
		if err := json.Unmarshal([]byte(r.CellsJSON), &cells); err != nil {
			return nil, fmt.Errorf("decode zone %q: %w", r.Label, err)
		}
		z := world.NewZone(r.Label, nil)
		z.Color = world.Color{R: r.R, G: r.G, B: r.B}
		z.Pen = r.Pen
		z.Add(cells...)
		out = append(out, z)
	}
	return out, nil
}

type groupRow struct {
	ID          uint64 `db:"id"`
	FactionID   uint64 `db:"faction_id"`
	Phase       uint8  `db:"phase"`
	RallyQ      int    `db:"rally_q"`
	RallyR      int    `db:"rally_r"`
	Since       uint64 `db:"since"`
	MembersJSON string `db:"members_json"`
}

// SaveGroups replaces the travel groups.
func (db *DB) SaveGroups(groups []*social.Group) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM groups"); err != nil {
		return err
	}
	for _, g := range groups {
		members, _ := json.Marshal(g.Members)
		row := groupRow{
			ID: g.ID, FactionID: g.FactionID, Phase: uint8(g.Phase),
			RallyQ: g.Rally.Q, RallyR: g.Rally.R, Since: g.Since,
			MembersJSON: string(members),
		}
		_, err := tx.NamedExec(`INSERT INTO groups (id, faction_id, phase, rally_q, rally_r, since, members_json)
			VALUES (:id, :faction_id, :phase, :rally_q, :rally_r, :since, :members_json)`, row)
		if err != nil {
			return fmt.Errorf("insert group %d: %w", g.ID, err)
		}
	}
	return tx.Commit()
}

// LoadGroups reads the travel groups in ID order.
func (db *DB) LoadGroups() ([]*social.Group, error) {
	var rows []groupRow
	if err := db.conn.Select(&rows, "SELECT * FROM groups ORDER BY id"); err != nil {
		return nil, err
	}
	out := make([]*social.Group, 0, len(rows))
	for _, r := range rows {
		g := &social.Group{
			ID:        r.ID,
			FactionID: r.FactionID,
			Phase:     social.Phase(r.Phase),
			Rally:     world.HexCoord{Q: r.RallyQ, R: r.RallyR},
			Since:     r.Since,
		}
		if err := json.Unmarshal([]byte(r.MembersJSON), &g.Members); err != nil {
			return nil, fmt.Errorf("decode group %d: %w", r.ID, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// SaveEvents replaces the stored event log.
func (db *DB) SaveEvents(events []engine.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM events"); err != nil {
		return err
	}
	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// WorldID returns the saved world's identifier, minting one on first use.
func (db *DB) WorldID() (string, error) {
	id, err := db.GetMeta("world_id")
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	id = uuid.NewString()
	return id, db.SaveMeta("world_id", id)
}

// HasWorldState reports whether a world has been saved before.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta("last_tick")
	return err == nil
}

// SaveWorldState performs a full save of all world state.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	st := sim.Snapshot()
	slog.Info("saving world state", "agents", len(st.Agents), "riding", len(st.Riding), "tick", st.Tick)

	if err := db.SaveAgents(st.Agents); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	if err := db.SaveRiding(st.Riding); err != nil {
		return fmt.Errorf("save riding: %w", err)
	}
	if err := db.SaveZones(sim.WorldMap.Zones); err != nil {
		return fmt.Errorf("save zones: %w", err)
	}
	if err := db.SaveGroups(st.Groups); err != nil {
		return fmt.Errorf("save groups: %w", err)
	}
	if err := db.SaveEvents(sim.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("season", strconv.Itoa(int(st.Season))); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("last_tick", strconv.FormatUint(st.Tick, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved")
	return nil
}

// LoadWorldState reads a saved world. Zones are returned separately since
// they belong on the map.
func (db *DB) LoadWorldState() (engine.State, []*world.Zone, error) {
	var st engine.State
	var err error

	if st.Agents, err = db.LoadAgents(); err != nil {
		return st, nil, fmt.Errorf("load agents: %w", err)
	}
	if st.Riding, err = db.LoadRiding(); err != nil {
		return st, nil, fmt.Errorf("load riding: %w", err)
	}
	if st.Groups, err = db.LoadGroups(); err != nil {
		return st, nil, fmt.Errorf("load groups: %w", err)
	}
	zones, err := db.LoadZones()
	if err != nil {
		return st, nil, fmt.Errorf("load zones: %w", err)
	}

	if v, err := db.GetMeta("last_tick"); err == nil {
		if t, err := strconv.ParseUint(v, 10, 64); err == nil {
			st.Tick = t
		}
	}
	if v, err := db.GetMeta("season"); err == nil {
		if s, err := strconv.ParseUint(v, 10, 8); err == nil {
			st.Season = world.Season(s)
		}
	}
	return st, zones, nil
}
