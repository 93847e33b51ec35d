// Package migrations embeds the goose schema migrations for every supported
// database dialect.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// ForDialect returns the migration files for the goose dialect name
// ("sqlite3" or "postgres").
func ForDialect(dialect string) (fs.FS, error) {
	dir := "sqlite"
	if dialect == "postgres" {
		dir = "postgres"
	}
	return fs.Sub(files, dir)
}
