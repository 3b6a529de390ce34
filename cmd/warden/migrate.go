package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/wardengraph/warden/internal/cli"
	"github.com/wardengraph/warden/store/pgstore"
)

var (
	migrateDB     string
	migrateDryRun bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create graph tables in the database",
	Long:  `Create the warden graph tables in PostgreSQL. Idempotent.`,
	Example: `  # Apply graph schema to database
  warden migrate --db postgres://localhost/mydb

  # Print the DDL without applying it
  warden migrate --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateDryRun || cfg.Migrate.DryRun {
			fmt.Print(pgstore.Schema())
			return nil
		}

		dsn, err := resolveDSN(migrateDB)
		if err != nil {
			return err
		}
		return runMigrate(dsn)
	},
}

func init() {
	f := migrateCmd.Flags()
	f.StringVar(&migrateDB, "db", "", "database URL")
	f.BoolVar(&migrateDryRun, "dry-run", false, "print the DDL instead of applying it")
}

// resolveDSN gets the database DSN from flag or config.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db or set in config)", nil)
	}
	return dsn, nil
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, cli.DBConnectError("connecting to database", err)
	}
	return db, nil
}

func runMigrate(dsn string) error {
	db, err := openDB(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()

	if !quiet {
		fmt.Println("Applying graph schema...")
	}
	if err := pgstore.Migrate(ctx, db); err != nil {
		return cli.GeneralError("migration failed", err)
	}
	if !quiet {
		fmt.Println("Graph schema applied successfully.")
	}
	return nil
}
