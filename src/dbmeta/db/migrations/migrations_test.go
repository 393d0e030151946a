package migrations

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/bkdbm/dbmeta/src/common/errors"
	"github.com/bkdbm/dbmeta/src/dbmeta/db/schema"
	_ "github.com/mattn/go-sqlite3"
)

// =============================================================================
// Helpers
// =============================================================================

var (
	key0036 = Key{App: AppDBMeta, Name: "0036_merge_0033_clusterdbhaext_0035_machine_system_info"}
	key0037 = Key{App: AppDBMeta, Name: "0037_auto_20240520_1104"}
)

func setupMigrationTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return db
}

func newTestRunner(t *testing.T, db *sql.DB) *Runner {
	t.Helper()

	runner, err := NewRunner(db, schema.SQLite())
	if err != nil {
		t.Fatalf("failed to create runner: %v", err)
	}
	return runner
}

func columnExists(t *testing.T, db *sql.DB, table, column string) bool {
	t.Helper()

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&count)
	if err != nil {
		t.Fatalf("failed to inspect %s: %v", table, err)
	}
	return count > 0
}

func insertProcessInstance(t *testing.T, db *sql.DB, clusterID int) {
	t.Helper()

	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO db_meta_extraprocessinstance
		(create_at, update_at, bk_biz_id, cluster_id, ip, listen_port, proc_type)
		VALUES (?, ?, 3, ?, '127.0.0.1', 9000, 'tbinlogdumper')`, now, now, clusterID)
	if err != nil {
		t.Fatalf("failed to insert process instance: %v", err)
	}
}

func insertDtsInfo(db *sql.DB, ticketID, source, target int) error {
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO db_meta_sqlserverdtsinfo
		(create_at, update_at, ticket_id, source_cluster_id, target_cluster_id, status)
		VALUES (?, ?, ?, ?, ?, 'running')`, now, now, ticketID, source, target)
	return err
}

// =============================================================================
// Graph Tests
// =============================================================================

func TestGraph_PlanOrder(t *testing.T) {
	g, err := NewGraph([]Migration{
		{App: "a", Name: "0003", Dependencies: []Key{{"a", "0002"}, {"b", "0001"}}},
		{App: "a", Name: "0002", Dependencies: []Key{{"a", "0001"}}},
		{App: "b", Name: "0001"},
		{App: "a", Name: "0001"},
	})
	if err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	var got []string
	for _, m := range g.Plan() {
		got = append(got, m.Key().String())
	}
	want := "a.0001 a.0002 b.0001 a.0003"
	if strings.Join(got, " ") != want {
		t.Fatalf("expected plan %q, got %q", want, strings.Join(got, " "))
	}

	leaves := g.Leaves()
	if len(leaves) != 1 || leaves[0] != (Key{"a", "0003"}) {
		t.Fatalf("unexpected leaves: %v", leaves)
	}

	if n := len(g.Ancestors(Key{"a", "0002"})); n != 2 {
		t.Fatalf("expected 2 ancestors (inclusive), got %d", n)
	}
	if n := len(g.Descendants(Key{"b", "0001"})); n != 2 {
		t.Fatalf("expected 2 descendants (inclusive), got %d", n)
	}
}

func TestGraph_Errors(t *testing.T) {
	tests := []struct {
		name string
		ms   []Migration
		want *errors.Error
	}{
		{
			name: "duplicate",
			ms:   []Migration{{App: "a", Name: "0001"}, {App: "a", Name: "0001"}},
			want: errors.ErrDuplicateMigration,
		},
		{
			name: "missing dependency",
			ms:   []Migration{{App: "a", Name: "0002", Dependencies: []Key{{"a", "0001"}}}},
			want: errors.ErrMissingDependency,
		},
		{
			name: "cycle",
			ms: []Migration{
				{App: "a", Name: "0001", Dependencies: []Key{{"a", "0002"}}},
				{App: "a", Name: "0002", Dependencies: []Key{{"a", "0001"}}},
			},
			want: errors.ErrCircularDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.ms)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRegisteredMigrations(t *testing.T) {
	g, err := NewGraph(All())
	if err != nil {
		t.Fatalf("registered migrations do not form a valid graph: %v", err)
	}

	m, err := g.Get(key0037)
	if err != nil {
		t.Fatalf("0037 not registered: %v", err)
	}
	if len(m.Dependencies) != 1 || m.Dependencies[0] != key0036 {
		t.Fatalf("0037 should depend only on 0036, got %v", m.Dependencies)
	}
	if len(m.Operations) != 2 {
		t.Fatalf("0037 should carry two operations, got %d", len(m.Operations))
	}

	leaves := g.Leaves()
	if len(leaves) != 1 || leaves[0] != key0037 {
		t.Fatalf("expected 0037 as the only leaf, got %v", leaves)
	}
}

// =============================================================================
// Runner Tests
// =============================================================================

func TestMigrationRunner_Run(t *testing.T) {
	db := setupMigrationTestDB(t)
	runner := newTestRunner(t, db)
	ctx := context.Background()

	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	if len(result.Applied) != 2 || result.Applied[0] != key0036 || result.Applied[1] != key0037 {
		t.Fatalf("unexpected applied list: %v", result.Applied)
	}
	if result.RunID == "" {
		t.Fatal("expected a run id")
	}

	if !columnExists(t, db, "db_meta_extraprocessinstance", "bk_instance_id") {
		t.Fatal("bk_instance_id column should exist")
	}

	pending, err := runner.PendingCount(ctx)
	if err != nil {
		t.Fatalf("failed to get pending count: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected 0 pending migrations, got %d", pending)
	}

	latest, err := runner.LatestApplied(ctx)
	if err != nil {
		t.Fatalf("failed to get latest: %v", err)
	}
	if latest == nil || latest.Name != key0037.Name {
		t.Fatalf("expected 0037 as latest, got %+v", latest)
	}
}

func TestMigrationRunner_Run_Idempotent(t *testing.T) {
	db := setupMigrationTestDB(t)
	runner := newTestRunner(t, db)
	ctx := context.Background()

	if _, err := runner.Run(ctx); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("second run should succeed: %v", err)
	}
	if len(result.Applied) != 0 {
		t.Fatalf("second run applied %v", result.Applied)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if count != 2 {
		t.Fatalf("expected 2 tracking rows, got %d", count)
	}
}

func TestMigrationRunner_ExistingRowsDefaultToZero(t *testing.T) {
	db := setupMigrationTestDB(t)
	runner := newTestRunner(t, db)
	ctx := context.Background()

	if _, err := runner.MigrateTo(ctx, key0036); err != nil {
		t.Fatalf("failed to migrate to 0036: %v", err)
	}
	insertProcessInstance(t, db, 11)
	insertProcessInstance(t, db, 12)

	if _, err := runner.Run(ctx); err != nil {
		t.Fatalf("failed to apply 0037: %v", err)
	}

	var nonZero int
	if err := db.QueryRow("SELECT COUNT(*) FROM db_meta_extraprocessinstance WHERE bk_instance_id <> 0").Scan(&nonZero); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if nonZero != 0 {
		t.Fatalf("expected existing rows to report bk_instance_id = 0, %d do not", nonZero)
	}

	if _, err := db.Exec("UPDATE db_meta_extraprocessinstance SET bk_instance_id = 42 WHERE cluster_id = 12"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	var bound int
	db.QueryRow("SELECT bk_instance_id FROM db_meta_extraprocessinstance WHERE cluster_id = 12").Scan(&bound)
	if bound != 42 {
		t.Fatalf("expected explicit value 42, got %d", bound)
	}
}

func TestMigrationRunner_DuplicateDtsTripleRejected(t *testing.T) {
	db := setupMigrationTestDB(t)
	runner := newTestRunner(t, db)

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if err := insertDtsInfo(db, 100, 1, 2); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := insertDtsInfo(db, 100, 1, 2); err == nil {
		t.Fatal("duplicate (ticket_id, source_cluster_id, target_cluster_id) should be rejected")
	}
	if err := insertDtsInfo(db, 100, 1, 3); err != nil {
		t.Fatalf("different target cluster should be allowed: %v", err)
	}
	if err := insertDtsInfo(db, 101, 1, 2); err != nil {
		t.Fatalf("different ticket should be allowed: %v", err)
	}

	_, err := db.Exec(`UPDATE db_meta_sqlserverdtsinfo SET target_cluster_id = 2
		WHERE ticket_id = 100 AND target_cluster_id = 3`)
	if err == nil {
		t.Fatal("update creating a duplicate triple should be rejected")
	}
}

func TestMigrationRunner_FailedMigrationRollsBack(t *testing.T) {
	db := setupMigrationTestDB(t)
	runner := newTestRunner(t, db)
	ctx := context.Background()

	if _, err := runner.MigrateTo(ctx, key0036); err != nil {
		t.Fatalf("failed to migrate to 0036: %v", err)
	}
	insertDtsInfo(db, 7, 1, 2)
	insertDtsInfo(db, 7, 1, 2)

	_, err := runner.Run(ctx)
	if !errors.Is(err, errors.ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}

	if columnExists(t, db, "db_meta_extraprocessinstance", "bk_instance_id") {
		t.Fatal("bk_instance_id should have been rolled back with the failed migration")
	}
	pending, _ := runner.PendingCount(ctx)
	if pending != 1 {
		t.Fatalf("expected 0037 to remain pending, got %d pending", pending)
	}
}

func TestMigrationRunner_MigrateToReverts(t *testing.T) {
	db := setupMigrationTestDB(t)
	runner := newTestRunner(t, db)
	ctx := context.Background()

	if _, err := runner.Run(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	result, err := runner.MigrateTo(ctx, key0036)
	if err != nil {
		t.Fatalf("failed to migrate back to 0036: %v", err)
	}
	if len(result.Reverted) != 1 || result.Reverted[0] != key0037 {
		t.Fatalf("expected 0037 reverted, got %v", result.Reverted)
	}

	if columnExists(t, db, "db_meta_extraprocessinstance", "bk_instance_id") {
		t.Fatal("bk_instance_id should be dropped")
	}
	if err := insertDtsInfo(db, 5, 1, 2); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := insertDtsInfo(db, 5, 1, 2); err != nil {
		t.Fatalf("duplicates should be allowed without the constraint: %v", err)
	}
}

func TestMigrationRunner_MigrateToUnknown(t *testing.T) {
	runner := newTestRunner(t, setupMigrationTestDB(t))

	_, err := runner.MigrateTo(context.Background(), Key{App: AppDBMeta, Name: "9999_nope"})
	if !errors.Is(err, errors.ErrMigrationNotFound) {
		t.Fatalf("expected ErrMigrationNotFound, got %v", err)
	}
}

func TestMigrationRunner_RollbackLastRun(t *testing.T) {
	db := setupMigrationTestDB(t)
	runner := newTestRunner(t, db)
	ctx := context.Background()

	if _, err := runner.RollbackLastRun(ctx); !errors.Is(err, errors.ErrNothingToRollback) {
		t.Fatalf("expected ErrNothingToRollback on empty history, got %v", err)
	}

	if _, err := runner.MigrateTo(ctx, key0036); err != nil {
		t.Fatalf("failed to migrate to 0036: %v", err)
	}
	second, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	result, err := runner.RollbackLastRun(ctx)
	if err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
	if result.RunID != second.RunID {
		t.Fatalf("expected run %s rolled back, got %s", second.RunID, result.RunID)
	}
	if len(result.Reverted) != 1 || result.Reverted[0] != key0037 {
		t.Fatalf("expected only 0037 reverted, got %v", result.Reverted)
	}

	pending, _ := runner.PendingCount(ctx)
	if pending != 1 {
		t.Fatalf("expected 1 pending migration, got %d", pending)
	}
}

func TestMigrationRunner_ApplyTargetsSharesRun(t *testing.T) {
	db := setupMigrationTestDB(t)
	ctx := context.Background()

	runner, err := NewRunnerWith(db, schema.SQLite(), []Migration{
		{App: "a", Name: "0001"},
		{App: "a", Name: "0002", Dependencies: []Key{{"a", "0001"}}},
		{App: "a", Name: "0003", Dependencies: []Key{{"a", "0001"}}},
	})
	if err != nil {
		t.Fatalf("failed to create runner: %v", err)
	}

	leaves := runner.Graph().Leaves()
	if len(leaves) != 2 {
		t.Fatalf("expected two leaves, got %v", leaves)
	}

	result, err := runner.ApplyTargets(ctx, leaves)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(result.Applied) != 3 {
		t.Fatalf("expected 3 applied, got %v", result.Applied)
	}

	statuses, err := runner.Status(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, st := range statuses {
		if st.RunID != result.RunID {
			t.Fatalf("expected every migration in run %s, got %+v", result.RunID, st)
		}
	}

	rolled, err := runner.RollbackLastRun(ctx)
	if err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
	if len(rolled.Reverted) != 3 {
		t.Fatalf("expected the whole run reverted, got %v", rolled.Reverted)
	}

	if _, err := runner.ApplyTargets(ctx, []Key{{"a", "0009"}}); !errors.Is(err, errors.ErrMigrationNotFound) {
		t.Fatalf("expected ErrMigrationNotFound, got %v", err)
	}
}

func TestMigrationRunner_InconsistentHistory(t *testing.T) {
	db := setupMigrationTestDB(t)
	runner := newTestRunner(t, db)
	ctx := context.Background()

	if _, err := runner.Status(ctx); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	_, err := db.Exec("INSERT INTO schema_migrations (app, name, run_id, applied_at) VALUES (?, ?, 'manual', ?)",
		key0037.App, key0037.Name, time.Now().UTC())
	if err != nil {
		t.Fatalf("failed to insert tracking row: %v", err)
	}

	if _, err := runner.Run(ctx); !errors.Is(err, errors.ErrInconsistentHistory) {
		t.Fatalf("expected ErrInconsistentHistory, got %v", err)
	}

	statuses, err := runner.Status(ctx)
	if err != nil {
		t.Fatalf("status should still report an inconsistent history: %v", err)
	}
	if statuses[0].Applied || !statuses[1].Applied {
		t.Fatalf("unexpected statuses: %+v", statuses)
	}
}

func TestMigrationRunner_IgnoresUnknownRecords(t *testing.T) {
	db := setupMigrationTestDB(t)
	runner := newTestRunner(t, db)
	ctx := context.Background()

	runner.Status(ctx)
	db.Exec("INSERT INTO schema_migrations (app, name, run_id, applied_at) VALUES ('other', '0001_initial', 'x', ?)", time.Now().UTC())

	if _, err := runner.Run(ctx); err != nil {
		t.Fatalf("unknown tracking rows should be ignored: %v", err)
	}
}

// =============================================================================
// SQL Rendering Tests
// =============================================================================

func TestMigrationRunner_SQL(t *testing.T) {
	runner := newTestRunner(t, setupMigrationTestDB(t))

	fwd, err := runner.SQL(key0037, false)
	if err != nil {
		t.Fatalf("forward SQL failed: %v", err)
	}
	if len(fwd) != 2 {
		t.Fatalf("expected 2 statements, got %v", fwd)
	}
	if !strings.Contains(fwd[0], `ADD COLUMN "bk_instance_id" integer DEFAULT 0 NOT NULL`) {
		t.Errorf("unexpected add column statement: %s", fwd[0])
	}
	if !strings.HasPrefix(fwd[1], "CREATE UNIQUE INDEX") {
		t.Errorf("unexpected unique statement: %s", fwd[1])
	}

	back, err := runner.SQL(key0037, true)
	if err != nil {
		t.Fatalf("backward SQL failed: %v", err)
	}
	if len(back) != 2 || !strings.HasPrefix(back[0], "DROP INDEX") || !strings.Contains(back[1], "DROP COLUMN") {
		t.Fatalf("backward SQL should undo operations in reverse order, got %v", back)
	}
}

func TestMigrationRunner_SQL_MySQL(t *testing.T) {
	runner, err := NewRunner(nil, schema.MySQL())
	if err != nil {
		t.Fatalf("failed to create runner: %v", err)
	}

	stmts, err := runner.SQL(key0037, false)
	if err != nil {
		t.Fatalf("forward SQL failed: %v", err)
	}
	if stmts[0] != "ALTER TABLE `db_meta_extraprocessinstance` ADD COLUMN `bk_instance_id` integer DEFAULT 0 NOT NULL" {
		t.Errorf("unexpected add column statement: %s", stmts[0])
	}

	start := strings.Index(stmts[1], "CONSTRAINT `") + len("CONSTRAINT `")
	end := strings.Index(stmts[1][start:], "`")
	if name := stmts[1][start : start+end]; len(name) > 64 {
		t.Errorf("constraint name %q exceeds the MySQL identifier limit", name)
	}
	if !strings.HasSuffix(stmts[1], "UNIQUE (`ticket_id`, `source_cluster_id`, `target_cluster_id`)") {
		t.Errorf("unexpected unique statement: %s", stmts[1])
	}
}
