package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "users, publishers, articles and subscriptions",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    bio TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL CHECK(role IN ('reader', 'journalist', 'editor')),
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS publishers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS publisher_editors (
    publisher_id INTEGER NOT NULL REFERENCES publishers(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    PRIMARY KEY (publisher_id, user_id)
);

CREATE TABLE IF NOT EXISTS publisher_journalists (
    publisher_id INTEGER NOT NULL REFERENCES publishers(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    PRIMARY KEY (publisher_id, user_id)
);

CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    image_url TEXT NOT NULL DEFAULT '',
    publisher_id INTEGER REFERENCES publishers(id) ON DELETE SET NULL,
    author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    source_url TEXT UNIQUE,
    state TEXT NOT NULL DEFAULT 'draft' CHECK(state IN ('draft', 'approved', 'declined')),
    approved_by INTEGER REFERENCES users(id) ON DELETE SET NULL,
    declined_by INTEGER REFERENCES users(id) ON DELETE SET NULL,
    declined_reason TEXT NOT NULL DEFAULT '',
    declined_at TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    CHECK(approved_by IS NULL OR declined_by IS NULL)
);

CREATE TABLE IF NOT EXISTS reader_publishers (
    reader_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    publisher_id INTEGER NOT NULL REFERENCES publishers(id) ON DELETE CASCADE,
    created_at TEXT NOT NULL,
    PRIMARY KEY (reader_id, publisher_id)
);

CREATE TABLE IF NOT EXISTS reader_journalists (
    reader_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    journalist_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at TEXT NOT NULL,
    PRIMARY KEY (reader_id, journalist_id)
);

CREATE INDEX IF NOT EXISTS idx_articles_state_created ON articles(state, created_at);
CREATE INDEX IF NOT EXISTS idx_articles_author ON articles(author_id);
CREATE INDEX IF NOT EXISTS idx_articles_publisher ON articles(publisher_id);
CREATE INDEX IF NOT EXISTS idx_reader_publishers_publisher ON reader_publishers(publisher_id);
CREATE INDEX IF NOT EXISTS idx_reader_journalists_journalist ON reader_journalists(journalist_id);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "newsletters",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS newsletters (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS newsletter_articles (
    newsletter_id INTEGER NOT NULL REFERENCES newsletters(id) ON DELETE CASCADE,
    article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    PRIMARY KEY (newsletter_id, article_id)
);

CREATE INDEX IF NOT EXISTS idx_newsletters_author ON newsletters(author_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
