package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/hades/internal/model"

	_ "modernc.org/sqlite"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    status           TEXT NOT NULL,
    workflow         TEXT NOT NULL,
    vartype          TEXT NOT NULL,
    num_variables    INTEGER NOT NULL,
    num_interactions INTEGER NOT NULL,
    problem          BLOB NOT NULL,
    workflow_spec    BLOB NOT NULL,
    sample           TEXT,
    initial_energy   REAL,
    energy           REAL,
    iterations       INTEGER NOT NULL DEFAULT 0,
    error            TEXT NOT NULL DEFAULT '',
    timeout_s        INTEGER,
    duration_ms      INTEGER,
    created_at       DATETIME NOT NULL,
    started_at       DATETIME,
    finished_at      DATETIME
)`

const createIterationsTable = `
CREATE TABLE IF NOT EXISTS iterations (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL REFERENCES runs(id),
    seq         INTEGER NOT NULL,
    energy      REAL NOT NULL,
    best_energy REAL NOT NULL,
    improved    INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    created_at  DATETIME NOT NULL,
    UNIQUE (run_id, seq)
)`

const runColumns = `id, status, workflow, vartype, num_variables, num_interactions,
	problem, workflow_spec, sample, initial_energy, energy, iterations, error,
	timeout_s, duration_ms, created_at, started_at, finished_at`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A :memory: database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for name, ddl := range map[string]string{"runs": createRunsTable, "iterations": createIterationsTable} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create %s table: %w", name, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, r *model.Run) error {
	sample, err := encodeSample(r.Sample)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Status, r.Workflow, r.Vartype, r.NumVariables, r.NumInteractions,
		r.Problem, r.WorkflowSpec, sample, r.InitialEnergy, r.Energy, r.Iterations, r.Error,
		r.TimeoutS, r.DurationMS, r.CreatedAt, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.Run, error) {
	r := &model.Run{}
	var sample sql.NullString
	if err := row.Scan(
		&r.ID, &r.Status, &r.Workflow, &r.Vartype, &r.NumVariables, &r.NumInteractions,
		&r.Problem, &r.WorkflowSpec, &sample, &r.InitialEnergy, &r.Energy, &r.Iterations, &r.Error,
		&r.TimeoutS, &r.DurationMS, &r.CreatedAt, &r.StartedAt, &r.FinishedAt,
	); err != nil {
		return nil, err
	}
	if sample.Valid && sample.String != "" {
		if err := json.Unmarshal([]byte(sample.String), &r.Sample); err != nil {
			return nil, fmt.Errorf("decode sample: %w", err)
		}
	}
	return r, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns a paginated list of runs ordered by created_at DESC,
// along with the total count of all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*model.Run, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, total, nil
}

// UpdateRunStatus moves a run to status if the transition is allowed. For
// terminal statuses it also sets finished_at; for running it sets started_at.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, id, status string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM runs WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read run status: %w", err)
	}
	if !model.ValidTransition(current, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	now := time.Now().UTC()
	switch {
	case model.Terminal(status):
		_, err = tx.ExecContext(ctx, "UPDATE runs SET status = ?, finished_at = ? WHERE id = ?", status, now, id)
	case status == model.StatusRunning:
		_, err = tx.ExecContext(ctx, "UPDATE runs SET status = ?, started_at = ? WHERE id = ?", status, now, id)
	default:
		_, err = tx.ExecContext(ctx, "UPDATE runs SET status = ? WHERE id = ?", status, id)
	}
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return tx.Commit()
}

// UpdateRun writes the result fields of a run: status, sample, energies,
// iteration count, error, duration and timestamps. Nil sample, initial
// energy and timestamps keep their stored values. A status change must be a
// valid transition.
func (s *SQLiteStore) UpdateRun(ctx context.Context, r *model.Run) error {
	sample, err := encodeSample(r.Sample)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM runs WHERE id = ?", r.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read run status: %w", err)
	}
	if current != r.Status && !model.ValidTransition(current, r.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, r.Status)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, sample = COALESCE(?, sample),
			initial_energy = COALESCE(?, initial_energy), energy = ?, iterations = ?,
			error = ?, duration_ms = ?, started_at = COALESCE(?, started_at),
			finished_at = COALESCE(?, finished_at)
		WHERE id = ?`,
		r.Status, sample, r.InitialEnergy, r.Energy, r.Iterations,
		r.Error, r.DurationMS, r.StartedAt, r.FinishedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return tx.Commit()
}

// GetRunStats returns aggregate counts and the mean duration of completed runs.
func (s *SQLiteStore) GetRunStats(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{
		CountByStatus:   make(map[string]int),
		CountByWorkflow: make(map[string]int),
	}

	groups := []struct {
		column string
		into   map[string]int
	}{
		{"status", stats.CountByStatus},
		{"workflow", stats.CountByWorkflow},
	}
	for _, g := range groups {
		rows, err := s.db.QueryContext(ctx, "SELECT "+g.column+", COUNT(*) FROM runs GROUP BY "+g.column)
		if err != nil {
			return nil, fmt.Errorf("count by %s: %w", g.column, err)
		}
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s count: %w", g.column, err)
			}
			g.into[key] = n
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate %s counts: %w", g.column, err)
		}
	}

	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), AVG(CASE WHEN status = ? THEN duration_ms END), COALESCE(SUM(iterations), 0) FROM runs",
		model.StatusCompleted,
	).Scan(&stats.Total, &avg, &stats.TotalIterations)
	if err != nil {
		return nil, fmt.Errorf("aggregate runs: %w", err)
	}
	stats.AvgDurationMS = avg.Float64

	return stats, nil
}

// InsertIteration appends one iteration to a run's history.
func (s *SQLiteStore) InsertIteration(ctx context.Context, it *model.Iteration) error {
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO iterations (run_id, seq, energy, best_energy, improved, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.RunID, it.Seq, it.Energy, it.BestEnergy, it.Improved, it.DurationMS, it.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert iteration: %w", err)
	}
	if it.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("iteration id: %w", err)
	}
	return nil
}

// GetIterations returns a run's iteration history in sequence order.
func (s *SQLiteStore) GetIterations(ctx context.Context, runID string) ([]model.Iteration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, seq, energy, best_energy, improved, duration_ms, created_at
		FROM iterations WHERE run_id = ? ORDER BY seq`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get iterations: %w", err)
	}
	defer rows.Close()

	var out []model.Iteration
	for rows.Next() {
		var it model.Iteration
		if err := rows.Scan(&it.ID, &it.RunID, &it.Seq, &it.Energy, &it.BestEnergy, &it.Improved, &it.DurationMS, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate iterations: %w", err)
	}
	return out, nil
}

func encodeSample(a map[int]int) (any, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode sample: %w", err)
	}
	return string(data), nil
}
