// Package catalog persists harvested records and run history in SQLite.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agentic-research/cpharvest/internal/flatten"
	"github.com/agentic-research/cpharvest/internal/sparql"
	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	since TEXT,
	until TEXT,
	datasets INTEGER DEFAULT 0,
	variables INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS records (
	kind TEXT NOT NULL,
	key TEXT NOT NULL,
	identifier TEXT NOT NULL,
	run_id TEXT NOT NULL,
	record JSON NOT NULL,
	PRIMARY KEY (kind, key)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);
`

// Run is one harvest, as recorded in the runs table.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Since      string
	Until      string
	Datasets   int
	Variables  int
}

// NewRun starts a run with a fresh identifier.
func NewRun(since, until string) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Since:     since,
		Until:     until,
	}
}

// NextSince is the lower submission bound for the run after r: its upper
// bound when it had one, otherwise the moment it started.
func (r Run) NextSince() string {
	if r.Until != "" {
		return r.Until
	}
	return r.StartedAt.UTC().Format(sparql.TimeLayout)
}

// Record is one stored catalog record. Fields is the parsed JSON object.
type Record struct {
	Kind       string
	Key        string
	Identifier string
	RunID      string
	Fields     any
}

// Store is a catalog database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the catalog at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Path returns the database file the store was opened on.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save writes every record of cat and the run row in one transaction.
// A record replaces any earlier record of the same kind and key.
func (s *Store) Save(ctx context.Context, run Run, cat *flatten.Catalog) error {
	if run.ID == "" {
		return fmt.Errorf("save run: missing run id")
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	run.Datasets = len(cat.Datasets)
	run.Variables = len(cat.Variables)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO records (kind, key, identifier, run_id, record)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range cat.Entries() {
		if _, err := stmt.ExecContext(ctx, e.Kind, e.Key, e.Identifier, run.ID, encode(e.Record)); err != nil {
			return fmt.Errorf("insert %s %s: %w", e.Kind, e.Key, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, since, until, datasets, variables)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(),
		run.Since, run.Until, run.Datasets, run.Variables)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return tx.Commit()
}

// encode renders rec as a JSON object with sorted keys.
func encode(rec flatten.FlatRecord) string {
	return oj.JSON(rec.Export(), &oj.Options{Sort: true})
}

// LastRun returns the most recently finished run. ok is false when no run
// has been recorded yet.
func (s *Store) LastRun(ctx context.Context) (run Run, ok bool, err error) {
	var started, finished int64
	var since, until sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, since, until, datasets, variables
		FROM runs ORDER BY finished_at DESC LIMIT 1
	`).Scan(&run.ID, &started, &finished, &since, &until, &run.Datasets, &run.Variables)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("query last run: %w", err)
	}
	run.StartedAt = time.Unix(0, started).UTC()
	run.FinishedAt = time.Unix(0, finished).UTC()
	run.Since = since.String
	run.Until = until.String
	return run, true, nil
}

// Stream calls fn for every stored record, ordered by kind then key. Only
// one parsed record is alive at a time.
func (s *Store) Stream(ctx context.Context, fn func(Record) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT kind, key, identifier, run_id, record FROM records ORDER BY kind, key")
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var rec Record
		var raw string
		if err := rows.Scan(&rec.Kind, &rec.Key, &rec.Identifier, &rec.RunID, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		rec.Fields, err = oj.ParseString(raw)
		if err != nil {
			return fmt.Errorf("parse record json %s: %w", rec.Key, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}
