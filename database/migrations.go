// fedistash/database/migrations.go
package database

// migration represents a single database schema migration.
type migration struct {
	Version uint
	Query   string
}

// allMigrations holds all schema changes in order.
var allMigrations = []migration{
	{
		Version: 1,
		Query: `
-- Carry the automated-account flag on the ingestion snapshot
ALTER TABLE posts ADD COLUMN account_bot INTEGER DEFAULT 0;

-- Speed up the reblog-target filter used by cursor and count queries
CREATE INDEX IF NOT EXISTS idx_posts_was_reblogged ON posts(server_slug, was_reblogged, seen);
		`,
	},
	// Future migrations will be added here, e.g.:
	// {
	// 	Version: 2,
	// 	Query: `ALTER TABLE posts ADD COLUMN pinned INTEGER DEFAULT 0;`,
	// },
}
