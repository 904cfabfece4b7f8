// Package persistence stores simulation runs in sqlite: run metadata,
// per-step metrics, citizen snapshots, and the final content registry.
package persistence

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/infoflow/internal/agents"
	"github.com/talgya/infoflow/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL DEFAULT '',
	started_at      TIMESTAMP NOT NULL,
	seed            INTEGER NOT NULL,
	parameters_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_steps (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	step         INTEGER NOT NULL,
	metrics_json TEXT NOT NULL,
	PRIMARY KEY (run_id, step)
);

CREATE TABLE IF NOT EXISTS agent_snapshots (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	step       INTEGER NOT NULL,
	agent_id   INTEGER NOT NULL,
	state_json TEXT NOT NULL,
	PRIMARY KEY (run_id, step, agent_id)
);

CREATE TABLE IF NOT EXISTS run_content (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	content_id  TEXT NOT NULL,
	source_kind TEXT NOT NULL,
	accuracy    REAL NOT NULL,
	spread_json TEXT NOT NULL,
	seeds_json  TEXT NOT NULL,
	PRIMARY KEY (run_id, content_id)
);
`

// DB wraps the sqlite connection.
type DB struct {
	conn *sqlx.DB
}

// Open connects to the sqlite database at path, enables WAL mode, and
// applies the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Connect("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// sqlite allows one writer; a single pooled connection also keeps
	// in-memory databases coherent.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close releases the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// RunInfo is one row of run metadata.
type RunInfo struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartedAt time.Time `db:"started_at" json:"started_at"`
	Seed      int64     `db:"seed" json:"seed"`
	Steps     int       `db:"steps" json:"steps"`
}

// CreateRun registers a new run and returns its id.
func (db *DB) CreateRun(cfg engine.Config) (string, error) {
	params, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding run parameters: %w", err)
	}
	id := uuid.NewString()
	_, err = db.conn.Exec(
		`INSERT INTO runs (id, name, started_at, seed, parameters_json) VALUES (?, '', ?, ?, ?)`,
		id, time.Now().UTC(), cfg.Seed, string(params))
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// RecordStep stores the metrics row for one step.
func (db *DB) RecordStep(runID string, step int, metrics engine.StepMetrics) error {
	payload, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("encoding step metrics: %w", err)
	}
	_, err = db.conn.Exec(
		`INSERT OR REPLACE INTO run_steps (run_id, step, metrics_json) VALUES (?, ?, ?)`,
		runID, step, string(payload))
	if err != nil {
		return fmt.Errorf("recording step %d: %w", step, err)
	}
	return nil
}

// SaveSnapshots stores the per-citizen state for one step.
func (db *DB) SaveSnapshots(runID string, step int, states []engine.CitizenState) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	for _, st := range states {
		payload, err := json.Marshal(st)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encoding snapshot for agent %d: %w", st.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO agent_snapshots (run_id, step, agent_id, state_json) VALUES (?, ?, ?, ?)`,
			runID, step, int64(st.ID), string(payload)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting snapshot for agent %d: %w", st.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshots: %w", err)
	}
	return nil
}

// SaveContent dumps the content registry, including seed nodes, for a run.
func (db *DB) SaveContent(runID string, arena *agents.Arena) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("beginning content transaction: %w", err)
	}
	for _, ct := range arena.All() {
		spread, err := json.Marshal(ct.SpreadPath)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encoding spread path for %s: %w", ct.ID, err)
		}
		seeds, err := json.Marshal(arena.SeedNodes(ct.ID))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encoding seed nodes for %s: %w", ct.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO run_content (run_id, content_id, source_kind, accuracy, spread_json, seeds_json)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, string(ct.ID), ct.SourceKind.String(), ct.Accuracy, string(spread), string(seeds)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting content %s: %w", ct.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing content: %w", err)
	}
	return nil
}

// RecentRuns lists runs newest first, with their recorded step counts.
func (db *DB) RecentRuns(limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []RunInfo
	err := db.conn.Select(&runs, `
		SELECT r.id, r.name, r.started_at, r.seed,
		       (SELECT COUNT(*) FROM run_steps s WHERE s.run_id = r.id) AS steps
		FROM runs r
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// RunData returns a run's metadata, parameters, and full metrics history.
type RunData struct {
	Info       RunInfo              `json:"info"`
	Parameters engine.Config        `json:"parameters"`
	History    []engine.StepMetrics `json:"history"`
}

// LoadRun fetches the stored run with its metrics history in step order.
func (db *DB) LoadRun(runID string) (*RunData, error) {
	var row struct {
		RunInfo
		ParametersJSON string `db:"parameters_json"`
	}
	err := db.conn.Get(&row, `
		SELECT r.id, r.name, r.started_at, r.seed, r.parameters_json,
		       (SELECT COUNT(*) FROM run_steps s WHERE s.run_id = r.id) AS steps
		FROM runs r WHERE r.id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}

	data := &RunData{Info: row.RunInfo}
	if err := json.Unmarshal([]byte(row.ParametersJSON), &data.Parameters); err != nil {
		return nil, fmt.Errorf("decoding run parameters: %w", err)
	}

	var steps []struct {
		Step        int    `db:"step"`
		MetricsJSON string `db:"metrics_json"`
	}
	if err := db.conn.Select(&steps, `SELECT step, metrics_json FROM run_steps WHERE run_id = ? ORDER BY step`, runID); err != nil {
		return nil, fmt.Errorf("loading run steps: %w", err)
	}
	for _, s := range steps {
		var m engine.StepMetrics
		if err := json.Unmarshal([]byte(s.MetricsJSON), &m); err != nil {
			return nil, fmt.Errorf("decoding metrics for step %d: %w", s.Step, err)
		}
		data.History = append(data.History, m)
	}
	return data, nil
}

// NameRun sets a human-readable label on a run.
func (db *DB) NameRun(runID, name string) error {
	res, err := db.conn.Exec(`UPDATE runs SET name = ? WHERE id = ?`, name, runID)
	if err != nil {
		return fmt.Errorf("naming run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("naming run %s: no such run", runID)
	}
	return nil
}

// DeleteRun removes a run and all of its recorded data.
func (db *DB) DeleteRun(runID string) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	for _, table := range []string{"run_content", "agent_snapshots", "run_steps", "runs"} {
		column := "run_id"
		if table == "runs" {
			column = "id"
		}
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, column), runID); err != nil {
			tx.Rollback()
			return fmt.Errorf("deleting from %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// ExportCSV writes a run's metrics history as CSV, one row per step, columns
// sorted by metric name after the leading step column.
func (db *DB) ExportCSV(runID string, w io.Writer) error {
	data, err := db.LoadRun(runID)
	if err != nil {
		return err
	}

	keySet := map[string]struct{}{}
	for _, row := range data.History {
		for k := range row {
			keySet[k] = struct{}{}
		}
	}
	delete(keySet, "current_step")
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cw := csv.NewWriter(w)
	header := append([]string{"step"}, keys...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i, row := range data.History {
		record := make([]string, 0, len(header))
		step := row["current_step"]
		if step == 0 && i > 0 {
			step = float64(i)
		}
		record = append(record, strconv.Itoa(int(step)))
		for _, k := range keys {
			record = append(record, strconv.FormatFloat(row[k], 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
