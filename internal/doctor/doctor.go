// Package doctor provides health checks for warden permission infrastructure.
//
// The doctor command validates that the permission system is properly
// configured by checking the rules file, database state, and graph health.
//
// Example usage:
//
//	d := doctor.New(db, "rules.yaml")
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wardengraph/warden"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical issue that will cause failures.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Rules File", "Graph Health").
	Category string

	// Name is a short identifier for the check.
	Name string

	// Status is the check outcome.
	Status Status

	// Message is a human-readable description of the result.
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	// Summary counts.
	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	// Group checks by category
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Doctor performs health checks on the warden permission infrastructure.
type Doctor struct {
	db        *sql.DB
	rulesPath string

	// Cached data from checks (populated during Run)
	registry *warden.Registry
}

// New creates a new Doctor instance. db may be nil, in which case database
// and graph checks are skipped.
func New(db *sql.DB, rulesPath string) *Doctor {
	return &Doctor{
		db:        db,
		rulesPath: rulesPath,
	}
}

// Run executes all health checks and returns a report.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	d.checkRulesFile(report)

	if d.db == nil {
		report.AddCheck(CheckResult{
			Category: "Database",
			Name:     "configured",
			Status:   StatusWarn,
			Message:  "No database configured, skipping graph checks",
			FixHint:  "Set database in warden.yaml or pass --db",
		})
		return report, nil
	}

	ok, err := d.checkDatabase(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("checking database: %w", err)
	}
	if ok {
		if err := d.checkGraphHealth(ctx, report); err != nil {
			return nil, fmt.Errorf("checking graph health: %w", err)
		}
	}

	return report, nil
}

// checkRulesFile validates the rules file exists, parses, and is acyclic.
func (d *Doctor) checkRulesFile(report *Report) {
	if _, err := os.Stat(d.rulesPath); err != nil {
		report.AddCheck(CheckResult{
			Category: "Rules File",
			Name:     "exists",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("Rules file not found at %s", d.rulesPath),
			Details:  "Without rules there is no propagation and no schema grants",
			FixHint:  "Create a rules file or point warden.yaml at one",
		})
		return
	}

	report.AddCheck(CheckResult{
		Category: "Rules File",
		Name:     "exists",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Rules file exists at %s", d.rulesPath),
	})

	file, err := warden.LoadRules(d.rulesPath)
	if err == nil {
		d.registry, err = file.Registry()
	}
	if err != nil {
		report.AddCheck(CheckResult{
			Category: "Rules File",
			Name:     "valid",
			Status:   StatusFail,
			Message:  "Rules file has errors",
			Details:  err.Error(),
			FixHint:  "Run 'warden validate' to see detailed errors",
		})
		return
	}

	report.AddCheck(CheckResult{
		Category: "Rules File",
		Name:     "valid",
		Status:   StatusPass,
		Message: fmt.Sprintf("Rules are valid (%d relationship rules, %d schema grants)",
			len(d.registry.Rules()), len(d.registry.Grants())),
	})

	if cycles := warden.DetectPropagationCycles(d.registry); len(cycles) > 0 {
		report.AddCheck(CheckResult{
			Category: "Rules File",
			Name:     "cycles",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d propagation cycle(s) in rules", len(cycles)),
			Details:  strings.Join(cycles, "\n"),
			FixHint:  "Traversal terminates on cycles but they usually indicate a modeling mistake",
		})
		return
	}

	report.AddCheck(CheckResult{
		Category: "Rules File",
		Name:     "cycles",
		Status:   StatusPass,
		Message:  "No propagation cycles detected",
	})
}

// checkDatabase validates connectivity and the presence of the graph tables.
// Returns false when further graph checks cannot run.
func (d *Doctor) checkDatabase(ctx context.Context, report *Report) (bool, error) {
	if err := d.db.PingContext(ctx); err != nil {
		report.AddCheck(CheckResult{
			Category: "Database",
			Name:     "connect",
			Status:   StatusFail,
			Message:  "Cannot connect to database",
			Details:  err.Error(),
			FixHint:  "Check the database URL and that PostgreSQL is running",
		})
		return false, nil
	}

	report.AddCheck(CheckResult{
		Category: "Database",
		Name:     "connect",
		Status:   StatusPass,
		Message:  "Database connection OK",
	})

	missing := []string{}
	for _, table := range []string{"graph_nodes", "graph_rels", "graph_props"} {
		var exists bool
		err := d.db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM pg_class c
				JOIN pg_namespace n ON n.oid = c.relnamespace
				WHERE c.relname = $1
				AND n.nspname = current_schema()
			)
		`, table).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("checking table %s: %w", table, err)
		}
		if !exists {
			missing = append(missing, table)
		}
	}

	if len(missing) > 0 {
		report.AddCheck(CheckResult{
			Category: "Database",
			Name:     "tables",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Missing graph tables: %s", strings.Join(missing, ", ")),
			FixHint:  "Run 'warden migrate' to create them",
		})
		return false, nil
	}

	report.AddCheck(CheckResult{
		Category: "Database",
		Name:     "tables",
		Status:   StatusPass,
		Message:  "Graph tables exist",
	})
	return true, nil
}

// checkGraphHealth looks for inconsistent grant and membership data.
func (d *Doctor) checkGraphHealth(ctx context.Context, report *Report) error {
	// SECURITY relationships whose target is not a User or Group node.
	var badGrants int64
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM graph_rels r
		LEFT JOIN graph_nodes p ON p.id = r.to_id
		WHERE r.type = 'SECURITY'
		AND (p.id IS NULL OR p.type NOT IN ('User', 'Group'))
	`).Scan(&badGrants)
	if err != nil {
		return fmt.Errorf("counting malformed grants: %w", err)
	}

	if badGrants > 0 {
		report.AddCheck(CheckResult{
			Category: "Graph Health",
			Name:     "grants",
			Status:   StatusFail,
			Message:  fmt.Sprintf("%d SECURITY relationship(s) do not point at a principal", badGrants),
			Details:  "Grants must target a User or Group node",
			FixHint:  "Delete the offending relationships or recreate the principal nodes",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Graph Health",
			Name:     "grants",
			Status:   StatusPass,
			Message:  "All grants target a principal",
		})
	}

	// MEMBERS relationships whose source is not a Group node.
	var badMembers int64
	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM graph_rels r
		LEFT JOIN graph_nodes g ON g.id = r.from_id
		WHERE r.type = 'MEMBERS'
		AND (g.id IS NULL OR g.type <> 'Group')
	`).Scan(&badMembers)
	if err != nil {
		return fmt.Errorf("counting malformed memberships: %w", err)
	}

	if badMembers > 0 {
		report.AddCheck(CheckResult{
			Category: "Graph Health",
			Name:     "memberships",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d MEMBERS relationship(s) do not start at a Group", badMembers),
			FixHint:  "Membership edges run group to member; review how they are created",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Graph Health",
			Name:     "memberships",
			Status:   StatusPass,
			Message:  "All memberships start at a Group",
		})
	}

	// Properties attached to ids with no node or relationship row.
	var orphanProps int64
	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM graph_props p
		WHERE NOT EXISTS (SELECT 1 FROM graph_nodes n WHERE n.id = p.object_id)
		AND NOT EXISTS (SELECT 1 FROM graph_rels r WHERE r.id = p.object_id)
	`).Scan(&orphanProps)
	if err != nil {
		return fmt.Errorf("counting orphan properties: %w", err)
	}

	if orphanProps > 0 {
		report.AddCheck(CheckResult{
			Category: "Graph Health",
			Name:     "orphan_properties",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d propert(ies) belong to no node or relationship", orphanProps),
			FixHint:  "Delete rows in graph_props with no matching object",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Graph Health",
			Name:     "orphan_properties",
			Status:   StatusPass,
			Message:  "No orphan properties",
		})
	}

	// Permission sets on SECURITY relationships that do not parse.
	rows, err := d.db.QueryContext(ctx, `
		SELECT r.id, p.value
		FROM graph_rels r
		JOIN graph_props p ON p.object_id = r.id AND p.key = 'allowed'
		WHERE r.type = 'SECURITY'
	`)
	if err != nil {
		return fmt.Errorf("reading grant permission sets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var badSets []string
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scanning grant row: %w", err)
		}
		// JSONB string values carry their quotes.
		allowed := strings.Trim(string(raw), `"`)
		if _, err := warden.ParsePermissionSet(allowed); err != nil {
			badSets = append(badSets, fmt.Sprintf("%s: %q", id, allowed))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating grant rows: %w", err)
	}

	if len(badSets) > 0 {
		report.AddCheck(CheckResult{
			Category: "Graph Health",
			Name:     "permission_sets",
			Status:   StatusFail,
			Message:  fmt.Sprintf("%d grant(s) carry an unparsable permission set", len(badSets)),
			Details:  strings.Join(badSets, "\n"),
			FixHint:  "Rewrite the allowed property as a comma-joined list of known permissions",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Graph Health",
			Name:     "permission_sets",
			Status:   StatusPass,
			Message:  "All grant permission sets parse",
		})
	}

	return nil
}
