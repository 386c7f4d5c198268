// Package classify implements the batch topical filter: articles go to the
// chat service in fixed-size batches, the reply is parsed into one yes/no
// decision per article, and the yes subset is accumulated. Per-batch trouble
// (call failure, malformed reply) drops that batch and the run continues.
package classify

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"newssift/internal/article"
	"newssift/internal/llm"
	"newssift/internal/retry"
)

const (
	// DefaultTopic stands in when the caller supplies an empty topic.
	DefaultTopic = "Artificial Intelligence"

	// DefaultBatchSize is the number of articles per classification request.
	DefaultBatchSize = 5

	// DefaultMaxContentChars caps how much body text a prompt carries per article.
	DefaultMaxContentChars = 4000
)

// Reporter receives human-readable progress lines during a run.
type Reporter interface {
	Report(msg string)
}

// ReporterFunc adapts a plain function to the Reporter interface.
type ReporterFunc func(msg string)

// Report calls f(msg).
func (f ReporterFunc) Report(msg string) { f(msg) }

// Options tune a Classifier. The zero value gives a 5-article batch size,
// the default retry policy, no inter-batch delay, no snapshot, no reporter.
type Options struct {
	BatchSize       int
	MaxContentChars int
	BatchDelay      time.Duration // pause between batches, to respect rate limits
	Retry           retry.Policy
	OutputDir       string // snapshot destination; empty disables the snapshot
	Reporter        Reporter
}

// Result holds the outcome of one classification run.
type Result struct {
	Matched        []article.Article // matched input records, original order
	Total          int
	Batches        int
	BatchesSkipped int
	Calls          int // chat service invocations, retries included
}

// Classifier filters article records by topical relevance, one batch per
// service call. Batches are processed strictly in order with no concurrent
// in-flight calls.
type Classifier struct {
	service llm.ChatService
	topic   string
	opts    Options
}

// New creates a classifier for the given topic. The topic is trimmed; if
// empty it falls back to DefaultTopic. Non-positive option values are
// replaced with their defaults.
func New(service llm.ChatService, topic string, opts Options) *Classifier {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = DefaultMaxContentChars
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	return &Classifier{service: service, topic: topic, opts: opts}
}

// Topic returns the effective topic after trimming and defaulting.
func (c *Classifier) Topic() string { return c.topic }

// Classify partitions articles into batches, asks the service for a yes/no
// decision per article, and returns the matched subset in input order. It
// never fails: batches whose call or reply goes wrong contribute nothing and
// are counted in BatchesSkipped. A canceled ctx stops further calls; matches
// already merged stay in the result.
func (c *Classifier) Classify(ctx context.Context, articles []article.Article) *Result {
	r := &Result{Total: len(articles)}
	if len(articles) == 0 {
		return r
	}

	r.Batches = (len(articles) + c.opts.BatchSize - 1) / c.opts.BatchSize
	c.report(fmt.Sprintf("Classifying %d articles against topic %q (%d batches)", r.Total, c.topic, r.Batches))

	num := 0
	for start := 0; start < len(articles); start += c.opts.BatchSize {
		num++
		if ctx.Err() != nil {
			log.Printf("Classification canceled after %d/%d batches", num-1, r.Batches)
			break
		}
		if num > 1 && c.opts.BatchDelay > 0 {
			if err := retry.Sleep(ctx, c.opts.BatchDelay); err != nil {
				log.Printf("Classification canceled after %d/%d batches", num-1, r.Batches)
				break
			}
		}

		batch := articles[start:min(start+c.opts.BatchSize, len(articles))]
		c.report(fmt.Sprintf("Batch %d/%d: sending %d articles", num, r.Batches, len(batch)))

		decisions, err := c.classifyBatch(ctx, batch, r)
		if err != nil {
			r.BatchesSkipped++
			log.Printf("Batch %d/%d skipped: %v", num, r.Batches, err)
			c.report(fmt.Sprintf("Batch %d/%d skipped: %v", num, r.Batches, err))
			continue
		}

		for i, yes := range decisions {
			if yes {
				r.Matched = append(r.Matched, batch[i])
				c.report(fmt.Sprintf("  [yes] %s", batch[i].Title))
			} else {
				c.report(fmt.Sprintf("  [no]  %s", batch[i].Title))
			}
		}
	}

	log.Printf("Classification complete: %d/%d articles matched %q (%d batches, %d skipped)",
		len(r.Matched), r.Total, c.topic, r.Batches, r.BatchesSkipped)
	c.report(fmt.Sprintf("Done: %d of %d articles matched %q", len(r.Matched), r.Total, c.topic))

	c.writeSnapshot(r.Matched)
	return r
}

// classifyBatch sends one batch through the retry policy and parses the
// reply into per-article decisions, aligned positionally with the batch.
func (c *Classifier) classifyBatch(ctx context.Context, batch []article.Article, r *Result) ([]bool, error) {
	system := buildSystemPrompt(c.topic, len(batch))
	user := buildBatchPayload(batch, c.opts.MaxContentChars)

	var reply string
	err := c.opts.Retry.Do(ctx, func() error {
		r.Calls++
		var callErr error
		reply, callErr = c.service.Chat(ctx, system, user)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("classification call failed: %w", err)
	}

	return parseDecisions(reply, len(batch))
}

// writeSnapshot persists the matched articles next to the topic slug.
// Best effort: a write failure is logged and never surfaces to the caller.
func (c *Classifier) writeSnapshot(matched []article.Article) {
	if c.opts.OutputDir == "" {
		return
	}
	path := filepath.Join(c.opts.OutputDir, article.SnapshotFilename(c.topic))
	if err := article.WriteSnapshot(path, matched); err != nil {
		log.Printf("Failed to write snapshot %s: %v", path, err)
		return
	}
	log.Printf("Snapshot written: %s", path)
}

func (c *Classifier) report(msg string) {
	if c.opts.Reporter != nil {
		c.opts.Reporter.Report(msg)
	}
}
