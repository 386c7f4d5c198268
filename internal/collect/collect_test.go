package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func rssItem(title, link string, pub time.Time, description string) string {
	return fmt.Sprintf(`<item>
		<title>%s</title>
		<link>%s</link>
		<pubDate>%s</pubDate>
		<description>%s</description>
	</item>`, title, link, pub.Format(time.RFC1123Z), description)
}

func rssFeed(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test Feed</title>` + strings.Join(items, "\n") + `</channel></rss>`
}

func serveRSS(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCollectFromFeed(t *testing.T) {
	now := time.Now()
	srv := serveRSS(t, rssFeed(
		rssItem("Recent story", "https://example.com/recent", now.Add(-2*time.Hour), "<p>Fresh &amp; new</p>"),
		rssItem("Old story", "https://example.com/old", now.AddDate(0, 0, -10), "Stale"),
	))

	c := New([]Feed{{URL: srv.URL, Name: "Test", Category: "economie"}}, 1, 0)
	records, r := c.Collect(context.Background())

	if r.Kept != 1 {
		t.Fatalf("expected 1 record within window, got %d", r.Kept)
	}
	rec := records[0]
	if rec.Title != "Recent story" {
		t.Errorf("expected recent story, got %q", rec.Title)
	}
	if rec.Link != "https://example.com/recent" {
		t.Errorf("unexpected link %q", rec.Link)
	}
	if rec.Category == nil || *rec.Category != "economie" {
		t.Error("expected configured category on record")
	}
	if rec.Content != "Fresh & new" {
		t.Errorf("expected stripped description, got %q", rec.Content)
	}
	if rec.PublishedDate == nil {
		t.Fatal("expected published date")
	}
	if _, err := time.Parse(time.RFC3339, *rec.PublishedDate); err != nil {
		t.Errorf("expected RFC3339 date, got %q", *rec.PublishedDate)
	}
}

func TestCollectKeepsUndatedItems(t *testing.T) {
	srv := serveRSS(t, rssFeed(
		`<item><title>Undated</title><link>https://example.com/undated</link></item>`,
	))

	c := New([]Feed{{URL: srv.URL}}, 1, 0)
	records, _ := c.Collect(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected undated item kept, got %d records", len(records))
	}
	if records[0].PublishedDate != nil {
		t.Error("expected nil published date")
	}
}

func TestCollectSkipsItemsMissingFields(t *testing.T) {
	now := time.Now()
	srv := serveRSS(t, rssFeed(
		`<item><link>https://example.com/untitled</link></item>`,
		`<item><title>No link</title></item>`,
		rssItem("Valid", "https://example.com/valid", now, "ok"),
	))

	c := New([]Feed{{URL: srv.URL}}, 1, 0)
	records, _ := c.Collect(context.Background())
	if len(records) != 1 || records[0].Title != "Valid" {
		t.Errorf("expected only the valid item, got %+v", records)
	}
}

func TestCollectDeduplicatesAcrossFeeds(t *testing.T) {
	now := time.Now()
	srv := serveRSS(t, rssFeed(
		rssItem("Same story", "https://example.com/story", now, "body"),
	))

	c := New([]Feed{{URL: srv.URL, Name: "A"}, {URL: srv.URL, Name: "B"}}, 1, 0)
	records, r := c.Collect(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected 1 unique record, got %d", len(records))
	}
	if r.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", r.Duplicates)
	}
}

func TestCollectCapsPerFeed(t *testing.T) {
	now := time.Now()
	var items []string
	for i := 0; i < 5; i++ {
		items = append(items, rssItem(fmt.Sprintf("Story %d", i), fmt.Sprintf("https://example.com/%d", i), now, "body"))
	}
	srv := serveRSS(t, rssFeed(items...))

	c := New([]Feed{{URL: srv.URL}}, 1, 2)
	records, _ := c.Collect(context.Background())
	if len(records) != 2 {
		t.Errorf("expected 2 records with maxPerFeed=2, got %d", len(records))
	}
}

func TestCollectFeedFailureDoesNotAbort(t *testing.T) {
	now := time.Now()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := serveRSS(t, rssFeed(rssItem("Survivor", "https://example.com/ok", now, "body")))

	c := New([]Feed{{URL: bad.URL}, {URL: good.URL}}, 1, 0)
	records, r := c.Collect(context.Background())
	if r.FeedErrors != 1 {
		t.Errorf("expected 1 feed error, got %d", r.FeedErrors)
	}
	if len(records) != 1 {
		t.Errorf("expected the healthy feed to still collect, got %d records", len(records))
	}
}

func TestCategoryFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.lesechos.fr/monde", "monde"},
		{"https://www.lesechos.fr/tech-medias/", "tech-medias"},
		{"https://www.lesechos.fr", "homepage"},
		{"https://services.lesechos.fr/rss/les-echos-monde.xml", "rss"},
	}
	for _, tc := range cases {
		if got := categoryFromURL(tc.url); got != tc.want {
			t.Errorf("categoryFromURL(%q): expected %q, got %q", tc.url, tc.want, got)
		}
	}
}

func TestExtractSourceName(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.lesechos.fr/rss", "Lesechos"},
		{"https://services.lesechos.fr/rss/une.xml", "Lesechos"},
		{"https://example.com/feed", "Example"},
	}
	for _, tc := range cases {
		if got := extractSourceName(tc.url); got != tc.want {
			t.Errorf("extractSourceName(%q): expected %q, got %q", tc.url, tc.want, got)
		}
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Hello <b>world</b>&nbsp;&amp; more</p>")
	if got != "Hello world & more" {
		t.Errorf("unexpected strip result: %q", got)
	}
}
