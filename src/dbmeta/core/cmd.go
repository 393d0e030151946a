// Package core provides the dbmeta command tree and HTTP server.
package core

import (
	"context"
	"fmt"
	"os"

	"github.com/bkdbm/dbmeta/src/common/cli"
	"github.com/bkdbm/dbmeta/src/common/logs"
	"github.com/bkdbm/dbmeta/src/common/output"
	"github.com/bkdbm/dbmeta/src/common/version"
	"github.com/bkdbm/dbmeta/src/dbmeta/db"
	"github.com/bkdbm/dbmeta/src/dbmeta/db/migrations"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// VersionInfo holds version information - set at build time via ldflags
	VersionInfo = version.New()

	// Global logger instance
	log = logs.Discard()

	// Configuration file path
	cfgFile string

	// Output format (table, json or yaml)
	outputFormat string
)

// Linker variables - set via ldflags at build time
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCommand builds the dbmeta command tree
func NewRootCommand() *cobra.Command {
	cfgFile = ""
	outputFormat = ""

	root := &cobra.Command{
		Use:   "dbmeta",
		Short: "DB metadata catalog",
		Long: `dbmeta manages the schema of the DB metadata catalog and serves
its extra process instance and SQL Server DTS records over HTTP.

Migrations are applied in dependency order and recorded in the
schema_migrations table of the target database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	cli.RegisterConfigFlag(root, &cfgFile, "/etc/dbmeta/dbmeta.yaml")
	cli.RegisterLogFlags(root)

	root.PersistentFlags().String("database-url", db.DefaultConfig().URL,
		"Database URL (sqlite:<path>, sqlite::memory:, mysql://..., postgres://...)")
	root.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "Output format: table, json or yaml (default: table on a terminal, json otherwise)")

	_ = cli.BindPersistentFlag(root, "database-url", "database.url")

	viper.SetDefault("database.url", db.DefaultConfig().URL)
	viper.SetDefault("database.max_open_conns", db.DefaultConfig().MaxOpenConns)
	viper.SetDefault("database.conn_max_lifetime", "0s")

	root.AddCommand(
		newMigrateCmd(),
		newShowMigrationsCmd(),
		newSQLMigrateCmd(),
		newRollbackCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}

// Execute runs the root command
func Execute() {
	VersionInfo.Version = Version
	VersionInfo.BuildDate = BuildDate
	VersionInfo.GitCommit = GitCommit

	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set
func initConfig() error {
	opts := cli.DefaultConfigOptions("dbmeta", "DBMETA")
	opts.ConfigFile = cfgFile

	if err := cli.InitConfig(opts); err != nil {
		return err
	}

	log = cli.InitLogger("dbmeta")
	db.SetLogger(log)
	migrations.SetLogger(log)

	return nil
}

// format returns the requested output format or the terminal default
func format() string {
	if outputFormat != "" {
		return outputFormat
	}
	return output.DefaultFormat()
}

// openDatabase connects to database.url
func openDatabase(ctx context.Context) (*db.Database, error) {
	return db.Open(ctx, db.Config{
		URL:             viper.GetString("database.url"),
		MaxOpenConns:    viper.GetInt("database.max_open_conns"),
		ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
	})
}
