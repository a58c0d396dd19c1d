package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"GannCycles/internal/model"
)

// SQLiteRecorder persists analysis runs to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// An in-memory database lives on one connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// WAL mode so dashboards can read while runs are written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			run_id            TEXT PRIMARY KEY,
			created_at        INTEGER NOT NULL,
			symbol            TEXT,
			source            TEXT,
			analysis_date     TEXT NOT NULL,
			end_date          TEXT NOT NULL,
			horizon_days      INTEGER,
			current_price     TEXT,
			pivot_count       INTEGER,
			projection_count  INTEGER,
			convergence_count INTEGER,
			top_date          TEXT,
			top_score         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON analysis_runs(created_at)`,

		`CREATE TABLE IF NOT EXISTS convergence_points (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL REFERENCES analysis_runs(run_id),
			rank         INTEGER NOT NULL,
			date         TEXT NOT NULL,
			score        INTEGER NOT NULL,
			days_away    INTEGER,
			strength     TEXT,
			categories   TEXT,
			seasonal     TEXT,
			contributors TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_run ON convergence_points(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_points_date ON convergence_points(date)`,

		`CREATE TABLE IF NOT EXISTS price_levels (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL REFERENCES analysis_runs(run_id),
			method          TEXT NOT NULL,
			role            TEXT NOT NULL,
			price           TEXT NOT NULL,
			reference_price TEXT,
			label           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_levels_run ON price_levels(run_id)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordReport stores the run, its convergence points and its levels in one transaction.
func (r *SQLiteRecorder) RecordReport(report *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var topDate sql.NullString
	var topScore sql.NullInt64
	if len(report.Convergences) > 0 {
		top := report.Convergences[0]
		topDate = sql.NullString{String: top.Date.String(), Valid: true}
		topScore = sql.NullInt64{Int64: int64(top.Score), Valid: true}
	}

	_, err = tx.Exec(`INSERT INTO analysis_runs
		(run_id, created_at, symbol, source, analysis_date, end_date, horizon_days, current_price,
		 pivot_count, projection_count, convergence_count, top_date, top_score)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		report.RunID, r.now().Unix(), report.Symbol, report.Source,
		report.AnalysisDate.String(), report.EndDate.String(), report.HorizonDays,
		report.CurrentPrice.String(), len(report.Pivots), len(report.Projections),
		len(report.Convergences), topDate, topScore,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, cp := range report.Convergences {
		contributors, err := json.Marshal(cp.Contributors)
		if err != nil {
			return fmt.Errorf("encode contributors: %w", err)
		}
		var seasonal sql.NullString
		if cp.Seasonal != nil {
			seasonal = sql.NullString{String: string(cp.Seasonal.Kind), Valid: true}
		}
		cats := make([]string, 0, 3)
		for _, c := range cp.Categories() {
			cats = append(cats, string(c))
		}
		if _, err := tx.Exec(`INSERT INTO convergence_points
			(run_id, rank, date, score, days_away, strength, categories, seasonal, contributors)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			report.RunID, i+1, cp.Date.String(), cp.Score, cp.DaysAway, cp.Strength(),
			strings.Join(cats, ","), seasonal, string(contributors),
		); err != nil {
			return fmt.Errorf("insert convergence point: %w", err)
		}
	}

	for _, lvl := range report.Levels.All() {
		if _, err := tx.Exec(`INSERT INTO price_levels
			(run_id, method, role, price, reference_price, label)
			VALUES (?,?,?,?,?,?)`,
			report.RunID, string(lvl.Method), string(lvl.Role),
			lvl.Price.String(), lvl.ReferencePrice.String(), lvl.Label,
		); err != nil {
			return fmt.Errorf("insert price level: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecentRuns lists the latest runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, created_at, symbol, source, analysis_date, current_price,
		convergence_count, COALESCE(top_date, ''), COALESCE(top_score, 0)
		FROM analysis_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.CreatedAt, &s.Symbol, &s.Source, &s.AnalysisDate,
			&s.CurrentPrice, &s.ConvergenceCount, &s.TopDate, &s.TopScore); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info("closing sqlite recorder")
	return r.db.Close()
}
