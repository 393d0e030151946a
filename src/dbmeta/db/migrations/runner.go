package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bkdbm/dbmeta/src/common/errors"
	"github.com/bkdbm/dbmeta/src/dbmeta/db/schema"
	"github.com/google/uuid"
)

// TrackingTable records applied migrations
const TrackingTable = "schema_migrations"

// All returns every registered migration
func All() []Migration {
	return []Migration{
		migration0036Baseline(),
		migration0037Auto20240520(),
	}
}

// Status describes one migration and whether it is applied
type Status struct {
	App         string     `json:"app"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Applied     bool       `json:"applied"`
	RunID       string     `json:"run_id,omitempty"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
}

// RunResult summarizes one Run, MigrateTo or RollbackLastRun call
type RunResult struct {
	RunID    string `json:"run_id,omitempty"`
	Applied  []Key  `json:"applied"`
	Reverted []Key  `json:"reverted"`
}

type record struct {
	runID     string
	appliedAt time.Time
}

// Runner applies and reverts migrations against a database. Each migration
// runs in its own transaction together with its tracking row. MySQL commits
// DDL implicitly, so there a failed migration can leave partial changes.
type Runner struct {
	db      *sql.DB
	dialect schema.Dialect
	graph   *Graph
}

// NewRunner creates a runner for the registered migrations
func NewRunner(db *sql.DB, dialect schema.Dialect) (*Runner, error) {
	return NewRunnerWith(db, dialect, All())
}

// NewRunnerWith creates a runner for an explicit migration set
func NewRunnerWith(db *sql.DB, dialect schema.Dialect, ms []Migration) (*Runner, error) {
	g, err := NewGraph(ms)
	if err != nil {
		return nil, err
	}
	return &Runner{db: db, dialect: dialect, graph: g}, nil
}

// Graph returns the runner's migration graph
func (r *Runner) Graph() *Graph {
	return r.graph
}

// Dialect returns the dialect statements are rendered for
func (r *Runner) Dialect() schema.Dialect {
	return r.dialect
}

// ensureMigrationsTable creates the tracking table if it doesn't exist
func (r *Runner) ensureMigrationsTable(ctx context.Context) error {
	cols := []schema.Field{
		{Name: "id", Type: schema.TypeAuto, PrimaryKey: true},
		{Name: "app", Type: schema.TypeVarchar, MaxLength: 255},
		{Name: "name", Type: schema.TypeVarchar, MaxLength: 255},
		{Name: "run_id", Type: schema.TypeVarchar, MaxLength: 36},
		{Name: "applied_at", Type: schema.TypeDateTime},
	}

	d := r.dialect
	defs := make([]string, 0, len(cols)+1)
	for _, f := range cols {
		def, err := d.ColumnDefinition(f)
		if err != nil {
			return err
		}
		defs = append(defs, def)
	}
	defs = append(defs, fmt.Sprintf("UNIQUE (%s, %s)", d.Quote("app"), d.Quote("name")))

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.Quote(TrackingTable), strings.Join(defs, ", "))
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return errors.ErrDatabaseQuery.WithMessage("failed to ensure migrations table").WithCause(err)
	}
	return nil
}

// appliedRecords returns the tracking rows keyed by migration
func (r *Runner) appliedRecords(ctx context.Context) (map[Key]record, error) {
	d := r.dialect
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s",
		d.Quote("app"), d.Quote("name"), d.Quote("run_id"), d.Quote("applied_at"), d.Quote(TrackingTable)))
	if err != nil {
		return nil, errors.ErrDatabaseQuery.WithMessage("failed to read applied migrations").WithCause(err)
	}
	defer rows.Close()

	applied := make(map[Key]record)
	for rows.Next() {
		var k Key
		var rec record
		if err := rows.Scan(&k.App, &k.Name, &rec.runID, &rec.appliedAt); err != nil {
			return nil, errors.ErrDatabaseQuery.WithMessage("failed to scan applied migration").WithCause(err)
		}
		applied[k] = rec
	}

	return applied, rows.Err()
}

// load ensures the tracking table and validates the recorded history
func (r *Runner) load(ctx context.Context) (map[Key]record, error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	applied, err := r.appliedRecords(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.checkConsistency(applied); err != nil {
		return nil, err
	}
	return applied, nil
}

// checkConsistency rejects histories where an applied migration has an
// unapplied dependency. Rows for unknown migrations are ignored.
func (r *Runner) checkConsistency(applied map[Key]record) error {
	for _, m := range r.graph.Plan() {
		if _, ok := applied[m.Key()]; !ok {
			continue
		}
		for _, dep := range m.Dependencies {
			if _, ok := applied[dep]; !ok {
				return errors.ErrInconsistentHistory.WithMessagef(
					"migration %s is applied before its dependency %s", m.Key(), dep)
			}
		}
	}
	return nil
}

// Run applies every pending migration in plan order
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	applied, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunResult{RunID: uuid.NewString(), Applied: []Key{}, Reverted: []Key{}}
	for _, m := range r.graph.Plan() {
		if _, ok := applied[m.Key()]; ok {
			continue
		}
		if err := r.apply(ctx, m, result.RunID); err != nil {
			return result, err
		}
		result.Applied = append(result.Applied, m.Key())
	}

	if len(result.Applied) == 0 {
		log.Info("No migrations to apply")
	}
	return result, nil
}

// MigrateTo moves the database to target. An unapplied target is applied
// together with its dependencies; an applied target stays applied and
// every applied migration depending on it is reverted.
func (r *Runner) MigrateTo(ctx context.Context, target Key) (*RunResult, error) {
	if _, err := r.graph.Get(target); err != nil {
		return nil, err
	}

	applied, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Applied: []Key{}, Reverted: []Key{}}

	if _, ok := applied[target]; !ok {
		result.RunID = uuid.NewString()
		for _, m := range r.graph.Ancestors(target) {
			if _, ok := applied[m.Key()]; ok {
				continue
			}
			if err := r.apply(ctx, m, result.RunID); err != nil {
				return result, err
			}
			result.Applied = append(result.Applied, m.Key())
		}
		return result, nil
	}

	descendants := r.graph.Descendants(target)
	for i := len(descendants) - 1; i >= 0; i-- {
		m := descendants[i]
		if m.Key() == target {
			continue
		}
		if _, ok := applied[m.Key()]; !ok {
			continue
		}
		if err := r.unapply(ctx, m); err != nil {
			return result, err
		}
		result.Reverted = append(result.Reverted, m.Key())
	}
	return result, nil
}

// ApplyTargets applies every unapplied target together with its
// dependencies, in plan order, as a single run
func (r *Runner) ApplyTargets(ctx context.Context, targets []Key) (*RunResult, error) {
	wanted := make(map[Key]bool)
	for _, target := range targets {
		if _, err := r.graph.Get(target); err != nil {
			return nil, err
		}
		for _, m := range r.graph.Ancestors(target) {
			wanted[m.Key()] = true
		}
	}

	applied, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunResult{RunID: uuid.NewString(), Applied: []Key{}, Reverted: []Key{}}
	for _, m := range r.graph.Plan() {
		if !wanted[m.Key()] {
			continue
		}
		if _, ok := applied[m.Key()]; ok {
			continue
		}
		if err := r.apply(ctx, m, result.RunID); err != nil {
			return result, err
		}
		result.Applied = append(result.Applied, m.Key())
	}
	return result, nil
}

// RollbackLastRun reverts the migrations recorded by the most recent run
func (r *Runner) RollbackLastRun(ctx context.Context) (*RunResult, error) {
	applied, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	var last string
	var lastAt time.Time
	for _, rec := range applied {
		if last == "" || rec.appliedAt.After(lastAt) {
			last, lastAt = rec.runID, rec.appliedAt
		}
	}
	if last == "" {
		return nil, errors.ErrNothingToRollback
	}

	inRun := make(map[Key]bool)
	for k, rec := range applied {
		if rec.runID == last {
			inRun[k] = true
		}
	}

	for _, m := range r.graph.Plan() {
		if _, ok := applied[m.Key()]; !ok || inRun[m.Key()] {
			continue
		}
		for _, dep := range m.Dependencies {
			if inRun[dep] {
				return nil, errors.ErrInconsistentHistory.WithMessagef(
					"cannot roll back run %s: %s depends on %s", last, m.Key(), dep)
			}
		}
	}

	result := &RunResult{RunID: last, Applied: []Key{}, Reverted: []Key{}}
	plan := r.graph.Plan()
	for i := len(plan) - 1; i >= 0; i-- {
		m := plan[i]
		if !inRun[m.Key()] {
			continue
		}
		if err := r.unapply(ctx, m); err != nil {
			return result, err
		}
		result.Reverted = append(result.Reverted, m.Key())
	}
	return result, nil
}

// apply executes a migration and records it within one transaction
func (r *Runner) apply(ctx context.Context, m Migration, runID string) error {
	before, err := r.graph.StateBefore(m.Key())
	if err != nil {
		return err
	}
	stmts, err := m.ForwardSQL(r.dialect, before)
	if err != nil {
		return err
	}

	log.Debug("Applying migration", "migration", m.Key(), "description", m.Description)

	d := r.dialect
	record := d.Rebind(fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s) VALUES (?, ?, ?, ?)",
		d.Quote(TrackingTable), d.Quote("app"), d.Quote("name"), d.Quote("run_id"), d.Quote("applied_at")))

	err = r.inTx(ctx, stmts, record, m.App, m.Name, runID, time.Now().UTC())
	if err != nil {
		log.Error("Migration failed", "migration", m.Key(), "error", err)
		return errors.ErrMigrationFailed.WithMessagef("applying %s failed", m.Key()).WithCause(err)
	}

	log.Info("Applied migration", "migration", m.Key(), "statements", len(stmts))
	return nil
}

// unapply reverts a migration and removes its record within one transaction
func (r *Runner) unapply(ctx context.Context, m Migration) error {
	before, err := r.graph.StateBefore(m.Key())
	if err != nil {
		return err
	}
	stmts, err := m.BackwardSQL(r.dialect, before)
	if err != nil {
		return err
	}

	log.Debug("Reverting migration", "migration", m.Key())

	d := r.dialect
	record := d.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		d.Quote(TrackingTable), d.Quote("app"), d.Quote("name")))

	if err := r.inTx(ctx, stmts, record, m.App, m.Name); err != nil {
		log.Error("Migration revert failed", "migration", m.Key(), "error", err)
		return errors.ErrMigrationFailed.WithMessagef("reverting %s failed", m.Key()).WithCause(err)
	}

	log.Info("Reverted migration", "migration", m.Key(), "statements", len(stmts))
	return nil
}

func (r *Runner) inTx(ctx context.Context, stmts []string, record string, args ...interface{}) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}

	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update migration record: %w", err)
	}

	return tx.Commit()
}

// Status lists every migration in plan order with its applied state. It
// reports inconsistent histories as they are instead of failing.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	applied, err := r.appliedRecords(ctx)
	if err != nil {
		return nil, err
	}

	plan := r.graph.Plan()
	out := make([]Status, 0, len(plan))
	for _, m := range plan {
		st := Status{App: m.App, Name: m.Name, Description: m.Description}
		if rec, ok := applied[m.Key()]; ok {
			at := rec.appliedAt
			st.Applied = true
			st.RunID = rec.runID
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

// PendingCount returns the number of unapplied migrations
func (r *Runner) PendingCount(ctx context.Context) (int, error) {
	statuses, err := r.Status(ctx)
	if err != nil {
		return 0, err
	}

	pending := 0
	for _, st := range statuses {
		if !st.Applied {
			pending++
		}
	}
	return pending, nil
}

// LatestApplied returns the last applied migration in plan order, or nil
func (r *Runner) LatestApplied(ctx context.Context) (*Status, error) {
	statuses, err := r.Status(ctx)
	if err != nil {
		return nil, err
	}

	for i := len(statuses) - 1; i >= 0; i-- {
		if statuses[i].Applied {
			return &statuses[i], nil
		}
	}
	return nil, nil
}

// SQL renders a migration's statements without touching the database
func (r *Runner) SQL(k Key, backwards bool) ([]string, error) {
	m, err := r.graph.Get(k)
	if err != nil {
		return nil, err
	}
	before, err := r.graph.StateBefore(k)
	if err != nil {
		return nil, err
	}
	if backwards {
		return m.BackwardSQL(r.dialect, before)
	}
	return m.ForwardSQL(r.dialect, before)
}
