package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wardengraph/warden/internal/cli"
	"github.com/wardengraph/warden/internal/doctor"
)

var (
	doctorDB      string
	doctorRules   string
	doctorVerbose bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long:  `Run health checks on permission infrastructure.`,
	Example: `  # Run health checks
  warden doctor --db postgres://localhost/mydb

  # Run with verbose output
  warden doctor --db postgres://localhost/mydb --verbose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rulesPath := resolveString(doctorRules, cfg.Rules)

		// The database is optional here; rules checks still run without one.
		var db *sql.DB
		dsn := resolveString(doctorDB, configDSN())
		if dsn != "" {
			var err error
			db, err = openDB(dsn)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
		}

		return runDoctor(db, rulesPath)
	},
}

func init() {
	f := doctorCmd.Flags()
	f.StringVar(&doctorDB, "db", "", "database URL")
	f.StringVar(&doctorRules, "rules", "", "path to rules file")
	f.BoolVar(&doctorVerbose, "verbose", false, "show detailed output")
}

// configDSN returns the configured database URL, or empty when absent or
// incomplete.
func configDSN() string {
	dsn, err := cfg.DSN()
	if err != nil {
		return ""
	}
	return dsn
}

func runDoctor(db *sql.DB, rulesPath string) error {
	ctx := context.Background()

	if !quiet {
		fmt.Println("warden doctor - Health Check")
	}

	d := doctor.New(db, rulesPath)
	report, err := d.Run(ctx)
	if err != nil {
		return cli.GeneralError("running doctor", err)
	}

	report.Print(os.Stdout, doctorVerbose)

	if report.HasErrors() {
		return cli.GeneralError("health checks failed", nil)
	}

	return nil
}
