// Package migrations embeds the SQL schema of the check-result cache.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var files embed.FS

// FS holds the migration files at its root, ready for database.Migrate.
var FS fs.FS = files
