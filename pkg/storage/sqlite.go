package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteView is a plan.View that keeps the plan in memory and writes every
// change through to a SQLite database. A failed write leaves the in-memory
// plan unchanged.
type SQLiteView struct {
	db      *sql.DB
	mem     *plan.InMemoryView
	version int
}

// OpenSQLiteView opens the database at path. If no plan has been saved yet
// the view is empty over a zero horizon and LoadPlan fails with ErrPlanNotFound.
func OpenSQLiteView(path string) (*SQLiteView, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	v := &SQLiteView{db: db}
	if err := v.reload(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return v, nil
}

// Close closes the database connection.
func (v *SQLiteView) Close() error {
	if v.db == nil {
		return nil
	}
	return v.db.Close()
}

func (v *SQLiteView) Directives() iter.Seq[directive.Directive] {
	return v.mem.Directives()
}

func (v *SQLiteView) Add(d directive.Directive) error {
	if err := v.mem.Add(d); err != nil {
		return err
	}
	if err := v.insert(context.Background(), v.db, d); err != nil {
		_ = v.mem.Remove(d)
		return err
	}
	return nil
}

func (v *SQLiteView) Remove(d directive.Directive) error {
	if err := v.mem.Remove(d); err != nil {
		return err
	}
	if _, err := v.db.ExecContext(context.Background(), `DELETE FROM directives WHERE id = ?`, int64(d.ID)); err != nil {
		_ = v.mem.Add(d)
		return fmt.Errorf("delete directive %s: %w", d.ID, err)
	}
	return nil
}

func (v *SQLiteView) TotalBounds() plan.Interval {
	return v.mem.TotalBounds()
}

func (v *SQLiteView) ToRelative(abs time.Time) time.Duration {
	return v.mem.ToRelative(abs)
}

func (v *SQLiteView) ToAbsolute(rel time.Duration) time.Time {
	return v.mem.ToAbsolute(rel)
}

// SavePlan replaces the stored plan with doc in one transaction, checking
// doc.Version against the stored version first.
func (v *SQLiteView) SavePlan(doc *planning.Document) (err error) {
	ctx := context.Background()

	mem, err := plan.NewInMemoryView(doc.Horizon, doc.Directives...)
	if err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stored int
	switch err := tx.QueryRowContext(ctx, `SELECT version FROM plan_meta WHERE id = 1`).Scan(&stored); {
	case errors.Is(err, sql.ErrNoRows):
		stored = 0
	case err != nil:
		return fmt.Errorf("read plan version: %w", err)
	}
	if stored != doc.Version {
		return &VersionConflictError{Expected: doc.Version, Actual: stored}
	}

	next := stored + 1
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO plan_meta (id, horizon_start, horizon_end, version)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			horizon_start = excluded.horizon_start,
			horizon_end = excluded.horizon_end,
			version = excluded.version
	`,
		doc.Horizon.Start.UTC().Format(time.RFC3339Nano),
		doc.Horizon.End.UTC().Format(time.RFC3339Nano),
		next,
	); err != nil {
		return fmt.Errorf("write plan meta: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM directives`); err != nil {
		return fmt.Errorf("clear directives: %w", err)
	}
	for _, d := range doc.Directives {
		if err := v.insert(ctx, tx, d); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit plan: %w", err)
	}

	v.mem = mem
	v.version = next
	doc.Version = next
	return nil
}

// LoadPlan returns the stored plan.
func (v *SQLiteView) LoadPlan() (*planning.Document, error) {
	if v.version == 0 {
		return nil, ErrPlanNotFound
	}
	return &planning.Document{
		Version:    v.version,
		Horizon:    v.mem.TotalBounds(),
		Directives: plan.Collect(v.mem),
	}, nil
}

// Version returns the stored plan version, zero before the first save.
func (v *SQLiteView) Version() int {
	return v.version
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (v *SQLiteView) insert(ctx context.Context, db execer, d directive.Directive) error {
	body, err := json.Marshal(toDirectiveRecord(d))
	if err != nil {
		return fmt.Errorf("marshal directive %s: %w", d.ID, err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO directives (id, type, body)
		VALUES (?, ?, ?)
	`, int64(d.ID), d.Type, string(body)); err != nil {
		return fmt.Errorf("insert directive %s: %w", d.ID, err)
	}
	return nil
}

func (v *SQLiteView) reload(ctx context.Context) error {
	var start, end string
	var version int
	err := v.db.QueryRowContext(ctx, `SELECT horizon_start, horizon_end, version FROM plan_meta WHERE id = 1`).
		Scan(&start, &end, &version)
	if errors.Is(err, sql.ErrNoRows) {
		v.mem, _ = plan.NewInMemoryView(plan.Horizon{})
		v.version = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("read plan meta: %w", err)
	}

	var horizon plan.Horizon
	if horizon.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
		return fmt.Errorf("parse horizon start: %w", err)
	}
	if horizon.End, err = time.Parse(time.RFC3339Nano, end); err != nil {
		return fmt.Errorf("parse horizon end: %w", err)
	}

	rows, err := v.db.QueryContext(ctx, `SELECT body FROM directives ORDER BY id`)
	if err != nil {
		return fmt.Errorf("query directives: %w", err)
	}
	defer rows.Close()

	var directives []directive.Directive
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return fmt.Errorf("scan directive: %w", err)
		}
		var rec directiveRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return fmt.Errorf("unmarshal directive: %w", err)
		}
		d, err := rec.toDirective()
		if err != nil {
			return err
		}
		directives = append(directives, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate directives: %w", err)
	}

	mem, err := plan.NewInMemoryView(horizon, directives...)
	if err != nil {
		return err
	}
	v.mem = mem
	v.version = version
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
