package article

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidInput reports a document that cannot be understood as a sequence
// of article records.
var ErrInvalidInput = errors.New("invalid article input")

// Article is one collected news article. Link is the identity: two records
// with the same link describe the same article. Optional fields are nil when
// the source did not provide them.
type Article struct {
	Title         string  `json:"title"`
	Link          string  `json:"link"`
	Category      *string `json:"category,omitempty"`
	Content       string  `json:"content"`
	PublishedDate *string `json:"published_date,omitempty"`
	UpdatedDate   *string `json:"updated_date,omitempty"`
}

// ReadFile loads a JSON array of article records from path.
func ReadFile(path string) ([]Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	articles, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return articles, nil
}

// Decode parses a JSON array of article records. Missing title or content
// keys decode to empty strings. A document that is not a JSON array fails
// with ErrInvalidInput.
func Decode(data []byte) ([]Article, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, fmt.Errorf("%w: document is not a JSON array", ErrInvalidInput)
	}
	var articles []Article
	if err := json.Unmarshal(trimmed, &articles); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return articles, nil
}

// WriteSnapshot writes articles as an indented JSON array to path, creating
// the parent directory if needed. Non-ASCII text is written as-is.
func WriteSnapshot(path string, articles []Article) error {
	if articles == nil {
		articles = []Article{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(articles); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

var (
	slugStrip    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	slugCollapse = regexp.MustCompile(`[\s-]+`)
)

// Slug derives a filesystem-safe name fragment from a topic: lower-cased,
// punctuation stripped, whitespace and hyphen runs joined by underscores.
func Slug(topic string) string {
	s := strings.ToLower(strings.TrimSpace(topic))
	s = slugStrip.ReplaceAllString(s, "")
	return slugCollapse.ReplaceAllString(s, "_")
}

// SnapshotFilename returns the canonical snapshot file name for a topic.
func SnapshotFilename(topic string) string {
	return "filtered_articles_" + Slug(topic) + ".json"
}
