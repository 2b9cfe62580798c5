// Package storage persists unique-facility inspection runs in SQLite. It is a
// diagnostic sink; nothing in the dashboard reads from it.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"munidash/internal/aggregate"
	"munidash/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNoRuns is returned when the store holds no inspection run yet.
var ErrNoRuns = errors.New("no inspection runs")

// InspectionRun is one snapshot of the unique-facility computation.
type InspectionRun struct {
	ID          int64
	CreatedAt   time.Time
	CLUESPrefix string
	Facilities  []aggregate.UniqueFacility
	Totals      core.CountIndex
}

// InspectionStore writes inspection runs to a SQLite file.
type InspectionStore struct {
	db *sql.DB
}

// NewInspectionStore opens (creating if needed) and migrates the database.
func NewInspectionStore(dbPath string) (*InspectionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &InspectionStore{db: db}, nil
}

func (s *InspectionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores one run in a single transaction and returns its id.
func (s *InspectionStore) SaveRun(ctx context.Context, run InspectionRun) (int64, error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO export_runs (created_at, clues_prefix, facility_count) VALUES (?, ?, ?)`,
		run.CreatedAt.UTC().Format(time.RFC3339Nano), run.CLUESPrefix, len(run.Facilities))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	facStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO unique_facilities (run_id, position, clues, municipality) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare facilities: %w", err)
	}
	defer facStmt.Close()
	for i, f := range run.Facilities {
		if _, err := facStmt.ExecContext(ctx, id, i, f.CLUES, f.Municipality); err != nil {
			return 0, fmt.Errorf("insert facility %s: %w", f.CLUES, err)
		}
	}

	totStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO unique_facility_totals (run_id, municipality, facilities) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare totals: %w", err)
	}
	defer totStmt.Close()
	for _, mun := range run.Totals.Municipalities() {
		if _, err := totStmt.ExecContext(ctx, id, mun, run.Totals.Get(mun)); err != nil {
			return 0, fmt.Errorf("insert total %s: %w", mun, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// LatestRun loads the most recently stored run.
func (s *InspectionStore) LatestRun(ctx context.Context) (InspectionRun, error) {
	var run InspectionRun
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, clues_prefix FROM export_runs ORDER BY id DESC LIMIT 1`).
		Scan(&run.ID, &created, &run.CLUESPrefix)
	if errors.Is(err, sql.ErrNoRows) {
		return InspectionRun{}, ErrNoRuns
	}
	if err != nil {
		return InspectionRun{}, fmt.Errorf("query latest run: %w", err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return InspectionRun{}, fmt.Errorf("parse run time %q: %w", created, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT clues, municipality FROM unique_facilities WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return InspectionRun{}, fmt.Errorf("query facilities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f aggregate.UniqueFacility
		if err := rows.Scan(&f.CLUES, &f.Municipality); err != nil {
			return InspectionRun{}, fmt.Errorf("scan facility: %w", err)
		}
		run.Facilities = append(run.Facilities, f)
	}
	if err := rows.Err(); err != nil {
		return InspectionRun{}, fmt.Errorf("iterate facilities: %w", err)
	}

	totals, err := s.db.QueryContext(ctx,
		`SELECT municipality, facilities FROM unique_facility_totals WHERE run_id = ?`, run.ID)
	if err != nil {
		return InspectionRun{}, fmt.Errorf("query totals: %w", err)
	}
	defer totals.Close()
	counts := map[string]int64{}
	for totals.Next() {
		var mun string
		var n int64
		if err := totals.Scan(&mun, &n); err != nil {
			return InspectionRun{}, fmt.Errorf("scan total: %w", err)
		}
		counts[mun] = n
	}
	if err := totals.Err(); err != nil {
		return InspectionRun{}, fmt.Errorf("iterate totals: %w", err)
	}
	run.Totals = core.NewCountIndex(counts)
	return run, nil
}

// CountRuns returns how many runs are stored.
func (s *InspectionStore) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM export_runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
