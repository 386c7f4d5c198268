package collect

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"newssift/internal/article"
)

func (c *Collector) parseFeed(ctx context.Context, f Feed, cutoff time.Time) ([]article.Article, error) {
	feed, err := c.parser.ParseURLWithContext(f.URL, ctx)
	if err != nil {
		return nil, err
	}

	category := f.Category
	if category == "" {
		category = categoryFromURL(f.URL)
	}

	var records []article.Article
	for _, item := range feed.Items {
		if len(records) >= c.maxPerFeed {
			break
		}

		rec := parseItem(item, category)
		if rec == nil {
			continue
		}
		if isWithinWindow(rec.PublishedDate, cutoff) {
			records = append(records, *rec)
		}
	}

	return records, nil
}

func parseItem(item *gofeed.Item, category string) *article.Article {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	if link == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	rec := &article.Article{Title: title, Link: link}
	if category != "" {
		rec.Category = &category
	}
	if item.PublishedParsed != nil {
		s := item.PublishedParsed.UTC().Format(time.RFC3339)
		rec.PublishedDate = &s
	}
	if item.UpdatedParsed != nil {
		s := item.UpdatedParsed.UTC().Format(time.RFC3339)
		rec.UpdatedDate = &s
	}

	if item.Content != "" {
		rec.Content = stripHTML(item.Content)
	} else if item.Description != "" {
		rec.Content = stripHTML(item.Description)
	}

	return rec
}

func isWithinWindow(publishedDate *string, cutoff time.Time) bool {
	if publishedDate == nil {
		return true // benefit of the doubt
	}
	pub, err := time.Parse(time.RFC3339, *publishedDate)
	if err != nil {
		return true
	}
	return !pub.Before(cutoff)
}

func stripHTML(text string) string {
	// Simple HTML tag removal
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	// Decode common entities
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	// Normalize whitespace
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// categoryFromURL derives a category label from the feed URL path,
// "homepage" for a bare host. Explicit feed categories take precedence.
func categoryFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return "homepage"
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "homepage"
	}
	seg := strings.SplitN(path, "/", 2)[0]
	if i := strings.IndexByte(seg, '.'); i > 0 {
		seg = seg[:i]
	}
	return seg
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds.", "services."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
