package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/wardengraph/warden/internal/cli"
)

var (
	statusDB    string
	statusRules string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current graph status",
	Long:  `Show rules file and database migration status.`,
	Example: `  # Check status
  warden status --db postgres://localhost/mydb`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rulesPath := resolveString(statusRules, cfg.Rules)

		dsn, err := resolveDSN(statusDB)
		if err != nil {
			return err
		}

		return runStatus(dsn, rulesPath)
	},
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&statusDB, "db", "", "database URL")
	f.StringVar(&statusRules, "rules", "", "path to rules file")
}

func runStatus(dsn, rulesPath string) error {
	db, err := openDB(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()

	_, rulesErr := os.Stat(rulesPath)
	if rulesErr == nil {
		fmt.Println("Rules file:    present")
	} else {
		fmt.Println("Rules file:    missing")
	}

	var tables int
	err = db.QueryRowContext(ctx, `
		SELECT count(*) FROM information_schema.tables
		WHERE table_name IN ('graph_nodes', 'graph_rels', 'graph_props')
	`).Scan(&tables)
	if err != nil {
		return cli.GeneralError("getting status", err)
	}

	if tables == 3 {
		fmt.Println("Graph tables:  present")
	} else {
		fmt.Printf("Graph tables:  missing (%d of 3)\n", tables)
	}

	if rulesErr != nil {
		fmt.Printf("\nNo rules found at %s\n", rulesPath)
	} else if tables != 3 {
		fmt.Println("\nGraph tables not found.")
		fmt.Println("Run warden migrate before running checks.")
	}

	return nil
}
