package report

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"newssift/internal/article"
	"newssift/internal/classify"
)

func ptr(s string) *string { return &s }

func TestBuild(t *testing.T) {
	started := time.Date(2026, 8, 25, 7, 0, 0, 0, time.UTC)
	result := &classify.Result{
		Matched: []article.Article{
			{Title: "L'économie française repart", Link: "https://example.com/a", Category: ptr("economie"), PublishedDate: ptr("2026-08-24T08:00:00Z")},
			{Title: "Tech sector news", Link: "https://example.com/b", Category: ptr("tech-medias")},
		},
		Total:   10,
		Batches: 2,
		Calls:   2,
	}

	md := Build("run-1", "Économie", started, result)

	for _, want := range []string{
		"# Filter run: Économie",
		"- Run: run-1",
		"- Started: 2026-08-25T07:00:00Z",
		"- Articles: 10",
		"- Matched: 2",
		"- Batches: 2 (0 skipped)",
		"- Service calls: 2",
		"## Matched articles",
		"L'économie française repart",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected report to contain %q, got:\n%s", want, md)
		}
	}
}

func TestBuildTableAlignment(t *testing.T) {
	result := &classify.Result{
		Matched: []article.Article{
			{Title: "Économie française", Link: "https://a", Category: ptr("economie")},
			{Title: "Short", Link: "https://b"},
		},
		Total:   2,
		Batches: 1,
	}

	md := Build("run-1", "Économie", time.Now(), result)

	var tableLines []string
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "|") {
			tableLines = append(tableLines, line)
		}
	}
	if len(tableLines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines", len(tableLines))
	}

	// Accented titles must not break column alignment.
	want := runewidth.StringWidth(tableLines[0])
	for i, line := range tableLines[1:] {
		if got := runewidth.StringWidth(line); got != want {
			t.Errorf("table line %d has display width %d, want %d:\n%s", i+1, got, want, line)
		}
	}
}

func TestBuildTruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("très long titre ", 10)
	result := &classify.Result{
		Matched: []article.Article{{Title: long, Link: "https://a"}},
		Total:   1,
		Batches: 1,
	}

	md := Build("run-1", "AI", time.Now(), result)
	if strings.Contains(md, long) {
		t.Error("expected long title to be truncated")
	}
	if !strings.Contains(md, "...") {
		t.Error("expected truncation marker")
	}
}

func TestBuildNoMatches(t *testing.T) {
	md := Build("run-1", "AI", time.Now(), &classify.Result{Total: 5, Batches: 1})
	if !strings.Contains(md, "No articles matched.") {
		t.Errorf("expected empty-run message, got:\n%s", md)
	}
	if strings.Contains(md, "## Matched articles") {
		t.Error("expected no table section without matches")
	}
}
