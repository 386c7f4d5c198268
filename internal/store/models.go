package store

import "newssift/internal/article"

// Article represents a stored article row.
type Article struct {
	ID             int64
	Link           string
	Title          string
	Category       *string
	Topic          *string
	PublishedDate  *string
	UpdatedDate    *string
	Content        string
	ContentFetched bool
	CollectedAt    *string
}

// Record converts the row to the record form used by the classifier and
// the JSON snapshots.
func (a *Article) Record() article.Article {
	return article.Article{
		Title:         a.Title,
		Link:          a.Link,
		Category:      a.Category,
		Content:       a.Content,
		PublishedDate: a.PublishedDate,
		UpdatedDate:   a.UpdatedDate,
	}
}

// Run represents one recorded filter run.
type Run struct {
	ID              string
	Topic           string
	StartedAt       string
	TotalArticles   int
	MatchedArticles int
	Batches         int
	BatchesSkipped  int
	ReportMarkdown  string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalArticles   int
	FetchedArticles int
	MatchedArticles int
	Runs            int
	Topics          int
}
