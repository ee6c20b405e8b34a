// Package preflight checks that an index root can host amansearch indexes.
//
// The checks cover:
//   - The index root exists or can be created, and is writable
//   - Free disk space at the index root (minimum 100MB)
//   - File descriptor limits (minimum 1024)
//   - The catalog database opens and lists its indexes
//   - No cataloged index is locked by another process
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, "/path/to/indexes")
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
