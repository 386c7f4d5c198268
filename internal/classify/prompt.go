package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"newssift/internal/article"
)

const systemPrompt = `You are a professional news analyst.

You will receive a list of articles. For each article, answer ONLY "yes" if it is clearly related to the topic "%s", otherwise answer "no".

Follow this strict format:
%s

Important:
- Do not explain.
- Do not repeat the articles.
- Only output the numbered answers exactly as shown.`

// buildSystemPrompt renders the instruction for a batch of n articles:
// the topic plus one example answer line per batch position.
func buildSystemPrompt(topic string, n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("%d. yes/no", i+1)
	}
	return fmt.Sprintf(systemPrompt, topic, strings.Join(lines, "\n"))
}

// buildBatchPayload renders the user message: one numbered block per
// article with its title and (truncated) body, blocks separated by blank
// lines. Indices are 1-based batch positions.
func buildBatchPayload(batch []article.Article, maxContentChars int) string {
	var b strings.Builder
	for i, a := range batch {
		if i > 0 {
			b.WriteString("\n\n")
		}
		content := a.Content
		if len(content) > maxContentChars {
			content = content[:maxContentChars] + "..."
		}
		fmt.Fprintf(&b, "Article %d:\nTitle: %s\nContent: %s", i+1, a.Title, content)
	}
	return b.String()
}

// decisionRe matches one answer line: an index, a period or colon, and a
// yes/no token. Tokens are collected in order of appearance.
var decisionRe = regexp.MustCompile(`(?i)(\d+)\s*[.:]\s*(yes|no)\b`)

// parseDecisions extracts the per-article decisions from a reply. The reply
// must contain exactly want decisions and their index labels must run 1..n
// in order; anything else is a malformed reply and the whole batch is
// discarded rather than guessed at.
func parseDecisions(reply string, want int) ([]bool, error) {
	pairs := decisionRe.FindAllStringSubmatch(reply, -1)
	if len(pairs) != want {
		return nil, fmt.Errorf("malformed reply: got %d decisions, want %d", len(pairs), want)
	}

	decisions := make([]bool, want)
	for i, m := range pairs {
		label, err := strconv.Atoi(m[1])
		if err != nil || label != i+1 {
			return nil, fmt.Errorf("malformed reply: decision %d labeled %q", i+1, m[1])
		}
		decisions[i] = strings.EqualFold(m[2], "yes")
	}
	return decisions, nil
}
