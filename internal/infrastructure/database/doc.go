// Package database provides SQLite connectivity for the node's event journal.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Versioned schema migrations embedded in the binary
//   - Connection lifecycle and health checks
//
// All queries use parameterised statements. The database file is created
// with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
