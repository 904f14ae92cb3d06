// Package database provides the SQLite connection behind the check-result
// cache.
//
// It manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Schema migrations read from an fs.FS (see package migrations)
//   - File permissions (0600) on the database file
//
// All queries use parameterised statements.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are nullable or have defaults, and
// every .up.sql has a .down.sql for development rollbacks.
package database
