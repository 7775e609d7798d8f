package auth

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the schema migrations for the users, sessions,
// and access_tokens tables.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
