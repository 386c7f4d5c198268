// Package report renders a filter run as a markdown document.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"newssift/internal/article"
	"newssift/internal/classify"
)

const maxTitleWidth = 60

// Build renders the markdown report for one filter run: the counters as a
// bullet list and the matched articles as an aligned table.
func Build(runID, topic string, startedAt time.Time, result *classify.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Filter run: %s\n\n", topic)
	fmt.Fprintf(&b, "- Run: %s\n", runID)
	fmt.Fprintf(&b, "- Started: %s\n", startedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Articles: %d\n", result.Total)
	fmt.Fprintf(&b, "- Matched: %d\n", len(result.Matched))
	fmt.Fprintf(&b, "- Batches: %d (%d skipped)\n", result.Batches, result.BatchesSkipped)
	fmt.Fprintf(&b, "- Service calls: %d\n", result.Calls)

	if len(result.Matched) == 0 {
		b.WriteString("\nNo articles matched.\n")
		return b.String()
	}

	b.WriteString("\n## Matched articles\n\n")
	writeMatchTable(&b, result.Matched)
	return b.String()
}

// writeMatchTable renders the matched articles as a markdown table with
// columns padded to their display width, so accented titles line up.
func writeMatchTable(b *strings.Builder, matched []article.Article) {
	headers := []string{"#", "Title", "Category", "Published"}
	rows := make([][]string, 0, len(matched))
	for i, a := range matched {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			runewidth.Truncate(a.Title, maxTitleWidth, "..."),
			deref(a.Category),
			deref(a.PublishedDate),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	writeRow := func(cells []string) {
		b.WriteString("|")
		for i, cell := range cells {
			b.WriteString(" ")
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	b.WriteString("|")
	for _, w := range widths {
		b.WriteString(" " + strings.Repeat("-", w) + " |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
