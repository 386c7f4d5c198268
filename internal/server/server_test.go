package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"newssift/internal/article"
	"newssift/internal/store"
)

func openTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

// seedRun stores two articles and a run that matched the first one.
func seedRun(t *testing.T, db *store.DB) store.Run {
	t.Helper()
	a1, _, err := db.UpsertArticle(article.Article{
		Title:         "Rate decision shakes markets",
		Link:          "https://example.com/rates",
		Category:      ptr("economie"),
		Content:       "Full text.",
		PublishedDate: ptr("2026-02-06T08:00:00Z"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := db.UpsertArticle(article.Article{
		Title:   "Cup final preview",
		Link:    "https://example.com/cup",
		Content: "Full text.",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run := store.Run{
		ID:              "run-1",
		Topic:           "Economy",
		StartedAt:       "2026-02-06T09:00:00Z",
		TotalArticles:   2,
		MatchedArticles: 1,
		Batches:         1,
		ReportMarkdown:  "# Filter run: Economy\n\nOne article matched.",
	}
	if err := db.InsertRun(run, []int64{a1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return run
}

func TestIndexRoute(t *testing.T) {
	db := openTestStore(t)
	seedRun(t, db)

	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Filter runs") {
		t.Error("expected 'Filter runs' in response body")
	}
	if !strings.Contains(body, "/run/run-1") {
		t.Error("expected link to the seeded run")
	}
	if !strings.Contains(body, "Economy") {
		t.Error("expected run topic in response body")
	}
}

func TestIndexRouteEmpty(t *testing.T) {
	db := openTestStore(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No filter runs yet") {
		t.Error("expected empty-state message")
	}
}

func TestIndexRouteUnknownPath(t *testing.T) {
	db := openTestStore(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRunRoute(t *testing.T) {
	db := openTestStore(t)
	seedRun(t, db)

	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/run/run-1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()

	// Report markdown should be rendered to HTML
	if !strings.Contains(body, "<h1>Filter run: Economy</h1>") {
		t.Error("expected rendered report heading in response")
	}
	// Matched article should be listed with its link
	if !strings.Contains(body, "Rate decision shakes markets") {
		t.Error("expected matched article title in response")
	}
	if !strings.Contains(body, "https://example.com/rates") {
		t.Error("expected matched article link in response")
	}
	// The unmatched article should not appear
	if strings.Contains(body, "Cup final preview") {
		t.Error("did not expect unmatched article in response")
	}
}

func TestRunRouteMissing(t *testing.T) {
	db := openTestStore(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/run/no-such-run", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRunRouteBareRedirects(t *testing.T) {
	db := openTestStore(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/run/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}
}

func TestArticlesRoute(t *testing.T) {
	db := openTestStore(t)
	seedRun(t, db)

	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/articles", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Rate decision shakes markets") {
		t.Error("expected first article title in response")
	}
	if !strings.Contains(body, "Cup final preview") {
		t.Error("expected second article title in response")
	}
	// The matched article carries its run topic
	if !strings.Contains(body, "matched Economy") {
		t.Error("expected matched topic marker in response")
	}
}

func TestStaticRoute(t *testing.T) {
	db := openTestStore(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-family") {
		t.Error("expected CSS content")
	}
}
