// Package fetch downloads full article text for stored articles.
package fetch

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"newssift/internal/store"
)

// Result holds the results of a content fetch run.
type Result struct {
	Fetched int
	Failed  int
}

// Fetcher fetches full article text via HTTP + readability extraction.
type Fetcher struct {
	db     *store.DB
	client *http.Client
}

// New creates a content fetcher.
func New(db *store.DB, timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		db: db,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissing fetches content for stored articles that have none yet.
// Publication dates found in the page's meta tags fill in rows that came
// from feeds without them.
func (f *Fetcher) FetchMissing(ctx context.Context) *Result {
	articles, err := f.db.GetArticlesNeedingFetch()
	if err != nil {
		log.Printf("Error getting articles needing fetch: %v", err)
		return &Result{}
	}

	if len(articles) == 0 {
		log.Println("No articles need content fetching")
		return &Result{}
	}

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for _, a := range articles {
		if ctx.Err() != nil {
			log.Printf("Content fetch canceled: %v", ctx.Err())
			break
		}

		u, _ := url.Parse(a.Link)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			f.db.MarkArticleFetchAttempted(a.ID)
			result.Failed++
			continue
		}

		page, httpErr := f.fetchArticle(ctx, a.Link)
		if httpErr != nil {
			f.db.MarkArticleFetchAttempted(a.ID)
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP error for %s, skipping remaining from %s", a.Link, domain)
			continue
		}

		if page.content != "" {
			f.db.UpdateArticleContent(a.ID, page.content, page.published, page.updated)
			result.Fetched++
			log.Printf("Fetched content for: %s", a.Title)
		} else {
			f.db.MarkArticleFetchAttempted(a.ID)
			result.Failed++
			log.Printf("No extractable content from: %s", a.Link)
		}
	}

	log.Printf("Content fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	return result
}

type page struct {
	content   string
	published *string
	updated   *string
}

func (f *Fetcher) fetchArticle(ctx context.Context, link string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "newssift/1.0 (article fetcher)")

	resp, err := f.client.Do(req)
	if err != nil {
		return &page{}, nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &page{}, nil
	}

	p := &page{}
	p.published, p.updated = extractMetaDates(body)

	parsedURL, _ := url.Parse(link)
	art, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return p, nil
	}

	text := strings.TrimSpace(art.TextContent)
	if len(text) > 100 {
		p.content = text
	}
	return p, nil
}

// extractMetaDates pulls article:published_time and article:modified_time
// from the page's Open Graph meta tags.
func extractMetaDates(body []byte) (published, updated *string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil
	}
	if v, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok && v != "" {
		published = &v
	}
	if v, ok := doc.Find(`meta[property="article:modified_time"]`).Attr("content"); ok && v != "" {
		updated = &v
	}
	return published, updated
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
