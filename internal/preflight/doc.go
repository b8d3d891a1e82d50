// Package preflight checks that qmdsync can run for a vault.
//
// The package validates:
//   - The vault directory exists and holds markdown files
//   - The vault is writable (serve keeps its lock under .qmdsync/)
//   - qmd can be run and its index read
//   - Whether documents still need embedding
//   - File descriptor limits for the file watcher
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(preflight.WithIndex(client))
//	results := checker.RunAll(ctx, "/path/to/vault")
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
