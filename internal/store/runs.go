package store

import (
	"database/sql"
	"fmt"
)

// InsertRun records a completed filter run and links its matched articles
// in result order. Matched articles are stamped with the run topic.
func (db *DB) InsertRun(run Run, matchedIDs []int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO filter_runs
		(id, topic, started_at, total_articles, matched_articles, batches, batches_skipped, report_markdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Topic, run.StartedAt, run.TotalArticles, run.MatchedArticles,
		run.Batches, run.BatchesSkipped, run.ReportMarkdown,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i, aid := range matchedIDs {
		if _, err := tx.Exec(
			"INSERT INTO run_matches (run_id, article_id, position) VALUES (?, ?, ?)",
			run.ID, aid, i,
		); err != nil {
			return fmt.Errorf("linking match %d: %w", i, err)
		}
		if _, err := tx.Exec(
			"UPDATE articles SET topic = ? WHERE id = ?", run.Topic, aid,
		); err != nil {
			return fmt.Errorf("stamping topic on article %d: %w", aid, err)
		}
	}

	return tx.Commit()
}

// GetRun returns a filter run by ID, or nil if it doesn't exist.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, topic, started_at, total_articles, matched_articles, batches, batches_skipped, report_markdown
		FROM filter_runs WHERE id = ?`, runID,
	)

	var r Run
	if err := row.Scan(&r.ID, &r.Topic, &r.StartedAt, &r.TotalArticles,
		&r.MatchedArticles, &r.Batches, &r.BatchesSkipped, &r.ReportMarkdown); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GetRecentRuns returns the most recent filter runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, topic, started_at, total_articles, matched_articles, batches, batches_skipped, report_markdown
		FROM filter_runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Topic, &r.StartedAt, &r.TotalArticles,
			&r.MatchedArticles, &r.Batches, &r.BatchesSkipped, &r.ReportMarkdown); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunMatches returns the articles a run matched, in result order.
func (db *DB) GetRunMatches(runID string) ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT a.id, a.link, a.title, a.category, a.topic, a.published_date, a.updated_date,
			a.content, a.content_fetched, a.collected_at
		FROM articles a JOIN run_matches m ON a.id = m.article_id
		WHERE m.run_id = ? ORDER BY m.position`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM articles", &s.TotalArticles},
		{"SELECT COUNT(*) FROM articles WHERE content_fetched = 1", &s.FetchedArticles},
		{"SELECT COUNT(DISTINCT article_id) FROM run_matches", &s.MatchedArticles},
		{"SELECT COUNT(*) FROM filter_runs", &s.Runs},
		{"SELECT COUNT(DISTINCT topic) FROM filter_runs", &s.Topics},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
