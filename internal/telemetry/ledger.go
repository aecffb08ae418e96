// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/rigrun-route/internal/config"
	"github.com/jeranaias/rigrun-route/internal/executor"
	"github.com/jeranaias/rigrun-route/internal/router"
)

// ErrClosed is returned by ledger calls after Close.
var ErrClosed = errors.New("ledger closed")

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	ts           INTEGER NOT NULL,
	decision_id  TEXT NOT NULL,
	model        TEXT NOT NULL,
	tier         TEXT NOT NULL,
	cost         REAL NOT NULL DEFAULT 0,
	success      INTEGER NOT NULL,
	last_resort  INTEGER NOT NULL DEFAULT 0,
	latency_ms   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_attempts_ts ON attempts(ts);
CREATE INDEX IF NOT EXISTS idx_attempts_tier ON attempts(tier);
`

// =============================================================================
// LEDGER
// =============================================================================

// Entry is one executed attempt as stored in the ledger.
type Entry struct {
	Timestamp  time.Time
	DecisionID string
	Model      string
	Tier       string
	Cost       float64
	Success    bool
	LastResort bool
	Latency    time.Duration
}

// TierSpend aggregates one tier's spend.
type TierSpend struct {
	Tier  string  `json:"tier"`
	Calls int     `json:"calls"`
	Cost  float64 `json:"cost"`
}

// DailyCost aggregates one calendar day (UTC).
type DailyCost struct {
	Date  string  `json:"date"`
	Calls int     `json:"calls"`
	Cost  float64 `json:"cost"`
}

// Ledger is the sqlite-backed spend ledger. Only successful attempts count
// toward spend; failed attempts are kept for the per-tier call counts.
type Ledger struct {
	db *sql.DB
}

// DefaultLedgerPath returns <config dir>/spend.db.
func DefaultLedgerPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "spend.db"), nil
}

// OpenLedger opens (creating if needed) the ledger at path. An empty path
// uses DefaultLedgerPath; ":memory:" gives a throwaway ledger.
func OpenLedger(path string) (*Ledger, error) {
	if path == "" {
		p, err := DefaultLedgerPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// Record stores entries in one transaction.
func (l *Ledger) Record(ctx context.Context, entries ...Entry) error {
	if l.db == nil {
		return ErrClosed
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger write: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attempts (ts, decision_id, model, tier, cost, success, last_resort, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.Timestamp.UTC().Unix(),
			e.DecisionID,
			e.Model,
			e.Tier,
			e.Cost,
			boolInt(e.Success),
			boolInt(e.LastResort),
			e.Latency.Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	return tx.Commit()
}

// MonthlySpend returns the spend of the calendar month containing now,
// in now's location.
func (l *Ledger) MonthlySpend(ctx context.Context, now time.Time) (float64, error) {
	if l.db == nil {
		return 0, ErrClosed
	}
	from, to := monthBounds(now)

	var total sql.NullFloat64
	err := l.db.QueryRowContext(ctx, `
		SELECT SUM(cost) FROM attempts
		WHERE success = 1 AND ts >= ? AND ts < ?`,
		from.Unix(), to.Unix(),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query monthly spend: %w", err)
	}
	return total.Float64, nil
}

// TierBreakdown returns per-tier call counts and spend since from,
// ordered by tier name.
func (l *Ledger) TierBreakdown(ctx context.Context, from time.Time) ([]TierSpend, error) {
	if l.db == nil {
		return nil, ErrClosed
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT tier, COUNT(*), COALESCE(SUM(CASE WHEN success = 1 THEN cost ELSE 0 END), 0)
		FROM attempts WHERE ts >= ?
		GROUP BY tier ORDER BY tier`,
		from.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query tier breakdown: %w", err)
	}
	defer rows.Close()

	var out []TierSpend
	for rows.Next() {
		var ts TierSpend
		if err := rows.Scan(&ts.Tier, &ts.Calls, &ts.Cost); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// Daily returns per-day totals in [from, to), oldest first.
func (l *Ledger) Daily(ctx context.Context, from, to time.Time) ([]DailyCost, error) {
	if l.db == nil {
		return nil, ErrClosed
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', ts, 'unixepoch') AS day, COUNT(*),
		       COALESCE(SUM(CASE WHEN success = 1 THEN cost ELSE 0 END), 0)
		FROM attempts WHERE ts >= ? AND ts < ?
		GROUP BY day ORDER BY day`,
		from.Unix(), to.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query daily spend: %w", err)
	}
	defer rows.Close()

	var out []DailyCost
	for rows.Next() {
		var d DailyCost
		if err := rows.Scan(&d.Date, &d.Calls, &d.Cost); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Prune deletes entries older than before and reports how many went.
func (l *Ledger) Prune(ctx context.Context, before time.Time) (int64, error) {
	if l.db == nil {
		return 0, ErrClosed
	}
	res, err := l.db.ExecContext(ctx, `DELETE FROM attempts WHERE ts < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune ledger: %w", err)
	}
	return res.RowsAffected()
}

// =============================================================================
// HELPERS
// =============================================================================

// EntriesFor converts an execution result into ledger entries, pricing each
// attempt with the same estimate the router used.
func EntriesFor(d *router.RoutingDecision, res *executor.Result, cfg *config.Config, now time.Time) []Entry {
	reg := cfg.Registry()
	entries := make([]Entry, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		entries = append(entries, Entry{
			Timestamp:  now,
			DecisionID: d.ID,
			Model:      a.Model,
			Tier:       a.Tier,
			Cost:       router.EstimateCost(reg, a.Model, d.Task, cfg.CostSettings),
			Success:    a.Success,
			LastResort: a.IsLastResort,
			Latency:    a.Latency,
		})
	}
	return entries
}

func monthBounds(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 1, 0)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
