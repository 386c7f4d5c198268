package store

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
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    link TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    category TEXT,
    topic TEXT,
    published_date TEXT,
    updated_date TEXT,
    content TEXT NOT NULL DEFAULT '',
    content_fetched INTEGER DEFAULT 0,
    collected_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS filter_runs (
    id TEXT PRIMARY KEY,
    topic TEXT NOT NULL,
    started_at TEXT NOT NULL,
    total_articles INTEGER DEFAULT 0,
    matched_articles INTEGER DEFAULT 0,
    batches INTEGER DEFAULT 0,
    batches_skipped INTEGER DEFAULT 0,
    report_markdown TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_matches (
    run_id TEXT NOT NULL REFERENCES filter_runs(id),
    article_id INTEGER NOT NULL REFERENCES articles(id),
    position INTEGER NOT NULL,
    PRIMARY KEY (run_id, article_id)
);

CREATE INDEX IF NOT EXISTS idx_articles_link ON articles(link);
CREATE INDEX IF NOT EXISTS idx_articles_topic ON articles(topic);
CREATE INDEX IF NOT EXISTS idx_filter_runs_started ON filter_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_matches_run ON run_matches(run_id);
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
