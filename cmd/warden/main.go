// Package main provides a CLI for operating warden permission graphs.
//
// The CLI supports:
//   - validate: Check a rules file and detect propagation cycles
//   - migrate: Create the graph tables in PostgreSQL
//   - status: Check database and rules state
//   - check: Resolve a single permission against the database
//
// Commands that require database access (migrate, status, check) need --db
// or database settings in warden.yaml. validate only reads files.
package main

func main() {
	Execute()
}
