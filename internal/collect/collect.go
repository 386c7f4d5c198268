// Package collect gathers article records from RSS/Atom feeds.
package collect

import (
	"context"
	"log"
	"time"

	"github.com/mmcdole/gofeed"

	"newssift/internal/article"
)

const defaultMaxPerFeed = 20

// Result holds the results of a collection run.
type Result struct {
	TotalFound int
	Kept       int
	Duplicates int
	FeedErrors int
	Sources    map[string]int
}

// Feed is one configured RSS/Atom source.
type Feed struct {
	URL      string
	Name     string
	Category string
}

// Collector parses configured feeds into article records.
type Collector struct {
	feeds      []Feed
	daysBack   int
	maxPerFeed int
	parser     *gofeed.Parser
}

// New creates a collector. Entries older than daysBack are dropped and each
// feed contributes at most maxPerFeed records.
func New(feeds []Feed, daysBack, maxPerFeed int) *Collector {
	if daysBack <= 0 {
		daysBack = 1
	}
	if maxPerFeed <= 0 {
		maxPerFeed = defaultMaxPerFeed
	}
	return &Collector{
		feeds:      feeds,
		daysBack:   daysBack,
		maxPerFeed: maxPerFeed,
		parser:     gofeed.NewParser(),
	}
}

// Collect parses all configured feeds and returns the records in feed
// order, deduplicated by link. A failing feed is logged and skipped; it
// never aborts the run.
func (c *Collector) Collect(ctx context.Context) ([]article.Article, *Result) {
	cutoff := time.Now().AddDate(0, 0, -c.daysBack)
	r := &Result{Sources: make(map[string]int)}
	seen := make(map[string]bool)
	var records []article.Article

	for _, f := range c.feeds {
		name := f.Name
		if name == "" {
			name = extractSourceName(f.URL)
		}

		entries, err := c.parseFeed(ctx, f, cutoff)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", f.URL, err)
			r.FeedErrors++
			continue
		}

		r.TotalFound += len(entries)
		for _, rec := range entries {
			if seen[rec.Link] {
				r.Duplicates++
				continue
			}
			seen[rec.Link] = true
			records = append(records, rec)
			r.Kept++
			r.Sources[name]++
		}
		log.Printf("Parsed %d entries from %s (within %d days)", len(entries), name, c.daysBack)
	}

	log.Printf("Collection complete: %d found, %d kept, %d duplicates", r.TotalFound, r.Kept, r.Duplicates)
	return records, r
}
