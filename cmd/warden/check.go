package main

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/wardengraph/warden"
	"github.com/wardengraph/warden/internal/cli"
	"github.com/wardengraph/warden/store/pgstore"
)

var (
	checkDB        string
	checkRules     string
	checkPrincipal string
	checkMode      string
)

var checkCmd = &cobra.Command{
	Use:   "check <object-id> <permission>",
	Short: "Resolve a single permission",
	Long: `Resolve whether a principal holds a permission on an object.

Exits 0 when granted and 5 when denied, so the command can be used
directly in scripts.`,
	Example: `  # Can user u1 read document d1?
  warden check d1 read --principal u1 --db postgres://localhost/mydb

  # Anonymous visibility check
  warden check d1 read --mode public`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		objectID := args[0]

		perm, err := warden.ParsePermission(args[1])
		if err != nil {
			return cli.GeneralError("invalid permission", err)
		}

		mode, err := parseMode(resolveString(checkMode, cfg.Check.Mode))
		if err != nil {
			return cli.ConfigError("invalid mode", err)
		}

		rulesPath := resolveString(checkRules, cfg.Rules)
		reg, err := loadRegistry(rulesPath)
		if err != nil {
			return err
		}

		dsn, err := resolveDSN(checkDB)
		if err != nil {
			return err
		}

		return runCheck(dsn, reg, objectID, perm, warden.SecurityContext{
			PrincipalID: checkPrincipal,
			Mode:        mode,
		})
	},
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkDB, "db", "", "database URL")
	f.StringVar(&checkRules, "rules", "", "path to rules file")
	f.StringVar(&checkPrincipal, "principal", "", "principal node id (empty for anonymous)")
	f.StringVar(&checkMode, "mode", "", "access mode: public, frontend, backend, superuser")
}

func parseMode(s string) (warden.AccessMode, error) {
	switch s {
	case "public":
		return warden.AccessPublic, nil
	case "frontend":
		return warden.AccessFrontend, nil
	case "backend":
		return warden.AccessBackend, nil
	case "superuser":
		return warden.AccessSuperUser, nil
	default:
		return 0, fmt.Errorf("unknown access mode %q", s)
	}
}

// loadRegistry reads the rules file when present; a missing file yields an
// empty registry so direct grants still resolve.
func loadRegistry(path string) (*warden.Registry, error) {
	file, err := warden.LoadRules(path)
	if err != nil {
		if warden.IsInvalidRuleErr(err) {
			return nil, cli.RuleParseError("parsing rules", err)
		}
		return warden.NewRegistry(), nil
	}
	reg, err := file.Registry()
	if err != nil {
		return nil, cli.RuleParseError("applying rules", err)
	}
	return reg, nil
}

func runCheck(dsn string, reg *warden.Registry, objectID string, perm warden.Permission, sctx warden.SecurityContext) error {
	db, err := openDB(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return cli.DBConnectError("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	store := pgstore.New(tx)
	resolver := warden.New(store, reg, warden.WithCache(warden.NewCache()))

	obj, found, err := store.GetObject(ctx, objectID)
	if err != nil {
		return cli.GeneralError("loading object", err)
	}
	if !found {
		return cli.GeneralError(fmt.Sprintf("object not found: %s", objectID), nil)
	}

	granted, err := resolver.IsGranted(ctx, obj, perm, sctx)
	if err != nil {
		return cli.GeneralError("resolving permission", err)
	}

	if granted {
		if !quiet {
			fmt.Printf("GRANTED %s on %s\n", perm, obj)
		}
		return nil
	}

	if !quiet {
		fmt.Printf("DENIED %s on %s\n", perm, obj)
	}
	return &cli.ExitError{Code: cli.ExitDenied, Message: "permission denied"}
}
