// Package report runs SQL summaries over the parquet history written by the
// trainer, using an in-memory DuckDB with views over the data directory.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DB is a DuckDB connection with two views:
//
//	history  one row per (batch, agent), from history_*.parquet
//	turns    one row per archived visualize frame, from episode_*.parquet
type DB struct {
	db   *sql.DB
	root string
}

type RunSummary struct {
	RunID      string
	Layout     string
	Cycles     int
	Batches    int
	Ticks      int64
	StartedMs  int64
	LastSeenMs int64
}

type CurvePoint struct {
	Cycle    int
	Agent    int
	Strategy string
	Mean     float64
	StdDev   float64
	Episodes int
}

type AgentSummary struct {
	Agent     int
	Strategy  string
	BestMean  float64
	BestCycle int
	LastMean  float64
	LastCycle int
}

type EpisodeSummary struct {
	RunID     string
	EpisodeID string
	Cycle     int
	Turns     int
	Width     int
	Height    int
}

// Open builds the views over every parquet file under root, skipping tmp/.
func Open(root string) (*DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA threads=4")

	views := []struct {
		name    string
		pattern string
		empty   string
	}{
		{"history", "history_*.parquet", emptyHistory},
		{"turns", "episode_*.parquet", emptyTurns},
	}
	for _, v := range views {
		query := v.empty
		if hasParquet(root, v.pattern) {
			glob := filepath.Join(root, "**", v.pattern)
			query = `SELECT * FROM read_parquet('` + escapeSQLString(glob) + `', filename=true, union_by_name=true)
				WHERE NOT regexp_matches(filename, '/tmp/[^/]+$')`
		}
		if _, err := db.Exec("CREATE OR REPLACE VIEW " + v.name + " AS " + query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create view %s: %w", v.name, err)
		}
	}
	return &DB{db: db, root: root}, nil
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Root() string { return d.root }

func (d *DB) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT run_id,
			MIN(layout)::VARCHAR,
			COUNT(DISTINCT cycle)::INTEGER,
			COUNT(DISTINCT cycle::VARCHAR || mode)::INTEGER,
			SUM(CASE WHEN agent = 0 THEN ticks ELSE 0 END)::BIGINT,
			MIN(started_at_ms)::BIGINT,
			MAX(started_at_ms + duration_ms)::BIGINT
		FROM history
		GROUP BY run_id
		ORDER BY 6 DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Layout, &r.Cycles, &r.Batches, &r.Ticks, &r.StartedMs, &r.LastSeenMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Curve returns the learning curve of one run for one mode, ordered by cycle
// then agent.
func (d *DB) Curve(ctx context.Context, runID, mode string) ([]CurvePoint, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT cycle, agent, strategy, mean, stddev, completed
		FROM history
		WHERE run_id = ? AND mode = ?
		ORDER BY cycle, agent`, runID, mode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CurvePoint
	for rows.Next() {
		var p CurvePoint
		if err := rows.Scan(&p.Cycle, &p.Agent, &p.Strategy, &p.Mean, &p.StdDev, &p.Episodes); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Agents summarises each agent slot's test-mode performance in a run.
func (d *DB) Agents(ctx context.Context, runID string) ([]AgentSummary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT agent,
			arg_max(strategy, cycle),
			MAX(mean),
			arg_max(cycle, mean),
			arg_max(mean, cycle),
			MAX(cycle)
		FROM history
		WHERE run_id = ? AND mode = 'test'
		GROUP BY agent
		ORDER BY agent`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AgentSummary
	for rows.Next() {
		var a AgentSummary
		if err := rows.Scan(&a.Agent, &a.Strategy, &a.BestMean, &a.BestCycle, &a.LastMean, &a.LastCycle); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Episodes lists archived visualize episodes, newest cycle first.
func (d *DB) Episodes(ctx context.Context, runID string) ([]EpisodeSummary, error) {
	query := `
		SELECT run_id, episode_id, MIN(cycle)::INTEGER, MAX(turn)::INTEGER, MIN(width)::INTEGER, MIN(height)::INTEGER
		FROM turns`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` GROUP BY run_id, episode_id ORDER BY 3 DESC, 2`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EpisodeSummary
	for rows.Next() {
		var e EpisodeSummary
		if err := rows.Scan(&e.RunID, &e.EpisodeID, &e.Cycle, &e.Turns, &e.Width, &e.Height); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func hasParquet(root, pattern string) bool {
	found := false
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return filepath.SkipDir
		}
		if d.IsDir() {
			if d.Name() == "tmp" {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

const emptyHistory = `SELECT * FROM (
	SELECT
		NULL::VARCHAR AS run_id,
		NULL::INTEGER AS cycle,
		NULL::VARCHAR AS mode,
		NULL::VARCHAR AS layout,
		NULL::INTEGER AS agent,
		NULL::VARCHAR AS strategy,
		NULL::INTEGER AS episodes,
		NULL::INTEGER AS completed,
		NULL::INTEGER AS failed,
		NULL::BIGINT AS ticks,
		NULL::BIGINT AS updates,
		NULL::DOUBLE AS mean,
		NULL::DOUBLE AS stddev,
		NULL::DOUBLE AS sum,
		NULL::BIGINT AS started_at_ms,
		NULL::BIGINT AS duration_ms,
		NULL::VARCHAR AS filename
) WHERE 1=0`

const emptyTurns = `SELECT * FROM (
	SELECT
		NULL::VARCHAR AS run_id,
		NULL::VARCHAR AS episode_id,
		NULL::INTEGER AS cycle,
		NULL::INTEGER AS turn,
		NULL::INTEGER AS max_turns,
		NULL::INTEGER AS width,
		NULL::INTEGER AS height,
		NULL::VARCHAR AS filename
) WHERE 1=0`
