package store

import (
	"database/sql"

	"newssift/internal/article"
)

// UpsertArticle inserts an article, or refreshes the existing row with the
// same link. Optional fields only overwrite what the row is missing, so a
// re-collect never erases fetched content or known dates. Returns the row
// ID and whether a new row was created.
func (db *DB) UpsertArticle(a article.Article) (int64, bool, error) {
	var id int64
	err := db.conn.QueryRow("SELECT id FROM articles WHERE link = ?", a.Link).Scan(&id)
	if err == sql.ErrNoRows {
		result, err := db.conn.Exec(
			`INSERT INTO articles (link, title, category, published_date, updated_date, content)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.Link, a.Title, a.Category, a.PublishedDate, a.UpdatedDate, a.Content,
		)
		if err != nil {
			return 0, false, err
		}
		id, err = result.LastInsertId()
		return id, true, err
	}
	if err != nil {
		return 0, false, err
	}

	_, err = db.conn.Exec(
		`UPDATE articles SET
			title = ?,
			category = COALESCE(?, category),
			published_date = COALESCE(?, published_date),
			updated_date = COALESCE(?, updated_date),
			content = CASE WHEN ? <> '' THEN ? ELSE content END
		WHERE id = ?`,
		a.Title, a.Category, a.PublishedDate, a.UpdatedDate, a.Content, a.Content, id,
	)
	return id, false, err
}

// GetArticlesNeedingFetch returns articles with empty content that haven't
// had a fetch attempt yet.
func (db *DB) GetArticlesNeedingFetch() ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT id, link, title, category, topic, published_date, updated_date, content, content_fetched, collected_at
		FROM articles WHERE content = '' AND content_fetched = 0
		ORDER BY collected_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// UpdateArticleContent stores fetched content. Published and updated dates
// found during the fetch only fill in rows that are missing them.
func (db *DB) UpdateArticleContent(articleID int64, content string, publishedDate, updatedDate *string) error {
	_, err := db.conn.Exec(
		`UPDATE articles SET content = ?, content_fetched = 1,
			published_date = COALESCE(published_date, ?),
			updated_date = COALESCE(updated_date, ?)
		WHERE id = ?`,
		content, publishedDate, updatedDate, articleID,
	)
	return err
}

// MarkArticleFetchAttempted marks that we tried to fetch content.
func (db *DB) MarkArticleFetchAttempted(articleID int64) error {
	_, err := db.conn.Exec(
		"UPDATE articles SET content_fetched = 1 WHERE id = ?", articleID,
	)
	return err
}

// GetRecentArticles returns the most recently collected articles.
func (db *DB) GetRecentArticles(limit int) ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT id, link, title, category, topic, published_date, updated_date, content, content_fetched, collected_at
		FROM articles ORDER BY collected_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// GetAllArticles returns every stored article in collection order.
func (db *DB) GetAllArticles() ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT id, link, title, category, topic, published_date, updated_date, content, content_fetched, collected_at
		FROM articles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// GetArticleByID returns a single article by ID.
func (db *DB) GetArticleByID(articleID int64) (*Article, error) {
	row := db.conn.QueryRow(
		`SELECT id, link, title, category, topic, published_date, updated_date, content, content_fetched, collected_at
		FROM articles WHERE id = ?`, articleID,
	)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		var a Article
		var fetched int
		if err := rows.Scan(&a.ID, &a.Link, &a.Title, &a.Category, &a.Topic,
			&a.PublishedDate, &a.UpdatedDate, &a.Content, &fetched, &a.CollectedAt); err != nil {
			return nil, err
		}
		a.ContentFetched = fetched != 0
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func scanArticle(row *sql.Row) (*Article, error) {
	var a Article
	var fetched int
	if err := row.Scan(&a.ID, &a.Link, &a.Title, &a.Category, &a.Topic,
		&a.PublishedDate, &a.UpdatedDate, &a.Content, &fetched, &a.CollectedAt); err != nil {
		return nil, err
	}
	a.ContentFetched = fetched != 0
	return &a, nil
}
