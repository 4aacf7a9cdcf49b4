// fedistash/database/schema.go
package database

const schema = `
CREATE TABLE IF NOT EXISTS servers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uri TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS posts (
	id TEXT NOT NULL,
	server_slug TEXT NOT NULL,
	bucket TEXT NOT NULL,
	uri TEXT,
	url TEXT,
	parent_id TEXT, -- set when this row is a reblog wrapper; references posts(id)
	was_reblogged INTEGER DEFAULT 0,
	seen INTEGER DEFAULT 0,
	created_at TEXT NOT NULL,
	content TEXT NOT NULL,
	language TEXT,
	in_reply_to_id TEXT,
	in_reply_to_account_id TEXT,
	account_id TEXT,
	account_username TEXT NOT NULL,
	account_acct TEXT,
	account_display_name TEXT NOT NULL,
	account_url TEXT,
	account_avatar TEXT,
	media_attachments TEXT NOT NULL DEFAULT '[]',
	visibility TEXT,
	favourites_count INTEGER DEFAULT 0,
	reblogs_count INTEGER DEFAULT 0,
	replies_count INTEGER DEFAULT 0,
	card TEXT,
	poll TEXT,
	saved INTEGER DEFAULT 0,
	PRIMARY KEY(id, server_slug)
);
CREATE TABLE IF NOT EXISTS reasons (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	reason TEXT NOT NULL UNIQUE,
	active INTEGER DEFAULT 1,
	filter INTEGER DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS account_tags (
	user_id TEXT NOT NULL,
	username TEXT NOT NULL,
	tag TEXT NOT NULL,
	server_slug TEXT NOT NULL DEFAULT '',
	count INTEGER NOT NULL DEFAULT 1,
	UNIQUE(user_id, tag)
);
CREATE TABLE IF NOT EXISTS muted_words (
	word TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS credentials (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	server_url TEXT NOT NULL,
	access_token TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- --- INDEXES ---
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
CREATE INDEX IF NOT EXISTS idx_posts_account_id ON posts(account_id);
CREATE INDEX IF NOT EXISTS idx_posts_account_username ON posts(account_username);
CREATE INDEX IF NOT EXISTS idx_posts_server_slug ON posts(server_slug);
CREATE INDEX IF NOT EXISTS idx_account_tags_user_id ON account_tags(user_id);
CREATE INDEX IF NOT EXISTS idx_account_tags_tag ON account_tags(tag);
CREATE INDEX IF NOT EXISTS idx_account_tags_server_slug ON account_tags(server_slug);
`
