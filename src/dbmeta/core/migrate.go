package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/bkdbm/dbmeta/src/common/errors"
	"github.com/bkdbm/dbmeta/src/common/output"
	"github.com/bkdbm/dbmeta/src/dbmeta/db/migrations"
	"github.com/bkdbm/dbmeta/src/dbmeta/db/schema"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [app [migration]]",
		Short: "Apply or revert migrations",
		Long: `Without arguments, apply every pending migration.

With an app, apply that app's pending migrations. With an app and a
migration name (or a unique prefix of one), move the database to that
migration: apply it if it is pending, or revert everything applied after
it.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			runner, err := database.Migrations()
			if err != nil {
				return err
			}

			var result *migrations.RunResult
			switch len(args) {
			case 0:
				result, err = runner.Run(ctx)
			case 1:
				result, err = migrateApp(cmd, runner, args[0])
			default:
				var key migrations.Key
				key, err = resolveKey(runner.Graph(), args[0], args[1])
				if err == nil {
					result, err = runner.MigrateTo(ctx, key)
				}
			}
			if result != nil {
				if perr := printRunResult(cmd, result); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}
}

// migrateApp applies every leaf of app in one run
func migrateApp(cmd *cobra.Command, runner *migrations.Runner, app string) (*migrations.RunResult, error) {
	var leaves []migrations.Key
	for _, k := range runner.Graph().Leaves() {
		if k.App == app {
			leaves = append(leaves, k)
		}
	}
	if len(leaves) == 0 {
		for _, m := range runner.Graph().Plan() {
			if m.App == app {
				// every migration of app has dependents in other apps
				return runner.Run(cmd.Context())
			}
		}
		return nil, errors.ErrMigrationNotFound.WithMessagef("app %q has no migrations", app)
	}

	return runner.ApplyTargets(cmd.Context(), leaves)
}

// resolveKey finds app's migration whose name is name or starts with it
func resolveKey(g *migrations.Graph, app, name string) (migrations.Key, error) {
	var (
		known   bool
		matches []migrations.Key
	)
	for _, m := range g.Plan() {
		if m.App != app {
			continue
		}
		known = true
		if m.Name == name {
			return m.Key(), nil
		}
		if strings.HasPrefix(m.Name, name) {
			matches = append(matches, m.Key())
		}
	}

	switch {
	case !known:
		return migrations.Key{}, errors.ErrMigrationNotFound.WithMessagef("app %q has no migrations", app)
	case len(matches) == 1:
		return matches[0], nil
	case len(matches) == 0:
		return migrations.Key{}, errors.ErrMigrationNotFound.WithMessagef("%s has no migration matching %q", app, name)
	default:
		names := make([]string, len(matches))
		for i, k := range matches {
			names[i] = k.Name
		}
		return migrations.Key{}, errors.ErrInvalidFieldValue.WithMessagef(
			"%q matches more than one migration in %s: %s", name, app, strings.Join(names, ", "))
	}
}

func printRunResult(cmd *cobra.Command, result *migrations.RunResult) error {
	w := cmd.OutOrStdout()
	return output.PrintFormatted(w, format(), result, func() error {
		if len(result.Applied) == 0 && len(result.Reverted) == 0 {
			fmt.Fprintln(w, "No migrations to apply.")
			return nil
		}
		rows := make([][]string, 0, len(result.Applied)+len(result.Reverted))
		for _, k := range result.Applied {
			rows = append(rows, []string{"Applied", k.App, k.Name})
		}
		for _, k := range result.Reverted {
			rows = append(rows, []string{"Reverted", k.App, k.Name})
		}
		output.PrintTable(w, []string{"ACTION", "APP", "MIGRATION"}, rows)
		return nil
	})
}

func newShowMigrationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "showmigrations",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			runner, err := database.Migrations()
			if err != nil {
				return err
			}

			statuses, err := runner.Status(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			return output.PrintFormatted(w, format(), statuses, func() error {
				rows := make([][]string, 0, len(statuses))
				for _, st := range statuses {
					mark, at := "[ ]", ""
					if st.Applied {
						mark = "[X]"
						if st.AppliedAt != nil {
							at = st.AppliedAt.Local().Format(time.DateTime)
						}
					}
					rows = append(rows, []string{mark, st.App, st.Name, at})
				}
				output.PrintTable(w, []string{"", "APP", "MIGRATION", "APPLIED AT"}, rows)
				return nil
			})
		},
	}
}

// sqlMigrateResult is the structured form of sqlmigrate output
type sqlMigrateResult struct {
	App        string   `json:"app"`
	Name       string   `json:"name"`
	Backwards  bool     `json:"backwards"`
	Dialect    string   `json:"dialect"`
	Statements []string `json:"statements"`
}

func newSQLMigrateCmd() *cobra.Command {
	var (
		backwards bool
		dialect   string
	)

	cmd := &cobra.Command{
		Use:   "sqlmigrate app migration",
		Short: "Print the SQL statements of a migration",
		Long: `Print the statements a migration runs, without executing them.

By default the statements are rendered for the engine of --database-url.
--dialect renders them for another engine without connecting.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				runner *migrations.Runner
				err    error
			)
			if dialect != "" {
				d, derr := schema.DialectFor(dialect)
				if derr != nil {
					return derr
				}
				runner, err = migrations.NewRunner(nil, d)
			} else {
				database, oerr := openDatabase(cmd.Context())
				if oerr != nil {
					return oerr
				}
				defer database.Close()
				runner, err = database.Migrations()
			}
			if err != nil {
				return err
			}

			key, err := resolveKey(runner.Graph(), args[0], args[1])
			if err != nil {
				return err
			}
			stmts, err := runner.SQL(key, backwards)
			if err != nil {
				return err
			}

			result := sqlMigrateResult{
				App:        key.App,
				Name:       key.Name,
				Backwards:  backwards,
				Dialect:    runner.Dialect().Name(),
				Statements: stmts,
			}
			w := cmd.OutOrStdout()
			return output.PrintFormatted(w, format(), result, func() error {
				for _, stmt := range stmts {
					fmt.Fprintf(w, "%s;\n", stmt)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&backwards, "backwards", false, "Print the statements that revert the migration")
	cmd.Flags().StringVar(&dialect, "dialect", "", "Render for this engine (sqlite, mysql, postgres) instead of the connected one")
	return cmd
}

func newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Revert the migrations applied by the most recent run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			runner, err := database.Migrations()
			if err != nil {
				return err
			}

			result, err := runner.RollbackLastRun(ctx)
			if result != nil {
				if perr := printRunResult(cmd, result); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}
}
