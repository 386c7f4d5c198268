// Package pipeline orchestrates the collect, fetch, classify, and record
// stages of a filter run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"newssift/internal/article"
	"newssift/internal/classify"
	"newssift/internal/collect"
	"newssift/internal/config"
	"newssift/internal/fetch"
	"newssift/internal/llm"
	"newssift/internal/report"
	"newssift/internal/retry"
	"newssift/internal/store"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID string
	Steps []StepResult
}

// RunOptions adjust a single pipeline run.
type RunOptions struct {
	Topic       string // overrides the configured topic
	DaysBack    int    // overrides collect.days_back
	Sample      bool   // classify only the first stored article
	SkipCollect bool   // reuse stored articles instead of hitting feeds
}

// Pipeline orchestrates the 4-step filter pipeline.
type Pipeline struct {
	cfg      *config.Config
	db       *store.DB
	service  llm.ChatService
	reporter classify.Reporter
}

// New creates a pipeline. The chat service is injected so runs can be
// tested without a live API.
func New(cfg *config.Config, db *store.DB, service llm.ChatService, reporter classify.Reporter) *Pipeline {
	return &Pipeline{cfg: cfg, db: db, service: service, reporter: reporter}
}

// Run executes the full pipeline. Collect and fetch failures degrade to
// step summaries; the run only aborts when there is nothing to classify
// or the run cannot be recorded.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) *Result {
	topic := opts.Topic
	if topic == "" {
		topic = p.cfg.Topic
	}

	r := &Result{RunID: uuid.NewString()}
	startedAt := time.Now().UTC()

	if opts.SkipCollect {
		r.Steps = append(r.Steps, StepResult{Name: "Collect", Summary: "Skipped, reusing stored articles"})
	} else {
		r.Steps = append(r.Steps, p.runCollect(ctx, opts.DaysBack))
	}

	r.Steps = append(r.Steps, p.runFetch(ctx))

	step, result, matchedIDs := p.runClassify(ctx, topic, opts.Sample)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	r.Steps = append(r.Steps, p.runRecord(r.RunID, topic, startedAt, result, matchedIDs))
	return r
}

// DryRun reports what a run would do without calling the feeds or the API.
func (p *Pipeline) DryRun(topic string) *Result {
	if topic == "" {
		topic = p.cfg.Topic
	}
	r := &Result{}

	stored, _ := p.db.GetAllArticles()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("[dry-run] %d articles already stored, %d feeds configured", len(stored), len(p.cfg.Feeds)),
	})

	needing, _ := p.db.GetArticlesNeedingFetch()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("[dry-run] %d articles need content fetching", len(needing)),
	})

	batches := 0
	if p.cfg.Classifier.BatchSize > 0 {
		batches = (len(stored) + p.cfg.Classifier.BatchSize - 1) / p.cfg.Classifier.BatchSize
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Classify",
		Summary: fmt.Sprintf("[dry-run] Would classify %d articles against %q in %d batches", len(stored), topic, batches),
	})

	return r
}

func (p *Pipeline) runCollect(ctx context.Context, daysBack int) StepResult {
	log.Println("Step 1/4: Collecting articles...")
	if daysBack <= 0 {
		daysBack = p.cfg.Collect.DaysBack
	}

	feeds := make([]collect.Feed, len(p.cfg.Feeds))
	for i, f := range p.cfg.Feeds {
		feeds[i] = collect.Feed{URL: f.URL, Name: f.Name, Category: f.Category}
	}

	collector := collect.New(feeds, daysBack, p.cfg.Collect.MaxPerFeed)
	records, res := collector.Collect(ctx)

	created := 0
	for _, rec := range records {
		_, isNew, err := p.db.UpsertArticle(rec)
		if err != nil {
			log.Printf("Failed to store %s: %v", rec.Link, err)
			continue
		}
		if isNew {
			created++
		}
	}

	if len(records) > 0 {
		path := filepath.Join(p.cfg.OutputDir(), "articles.json")
		if err := article.WriteSnapshot(path, records); err != nil {
			log.Printf("Failed to write %s: %v", path, err)
		}
	}

	return StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Found %d new articles (%d total, %d duplicates)", created, res.TotalFound, res.Duplicates),
	}
}

func (p *Pipeline) runFetch(ctx context.Context) StepResult {
	log.Println("Step 2/4: Fetching article content...")
	fetcher := fetch.New(p.db, 15*time.Second)
	result := fetcher.FetchMissing(ctx)
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d articles, %d failed", result.Fetched, result.Failed),
	}
}

func (p *Pipeline) runClassify(ctx context.Context, topic string, sample bool) (StepResult, *classify.Result, []int64) {
	log.Println("Step 3/4: Classifying articles...")

	stored, err := p.db.GetAllArticles()
	if err != nil {
		return StepResult{Name: "Classify", Err: fmt.Errorf("loading articles: %w", err)}, nil, nil
	}
	if len(stored) == 0 {
		return StepResult{Name: "Classify", Err: fmt.Errorf("no articles to classify")}, nil, nil
	}
	if sample {
		log.Println("Sample mode: classifying the first article only")
		stored = stored[:1]
	}

	records := make([]article.Article, len(stored))
	ids := make(map[string]int64, len(stored))
	for i, a := range stored {
		records[i] = a.Record()
		ids[a.Link] = a.ID
	}

	classifier := classify.New(p.service, topic, p.classifyOptions())
	result := classifier.Classify(ctx, records)

	matchedIDs := make([]int64, 0, len(result.Matched))
	for _, m := range result.Matched {
		matchedIDs = append(matchedIDs, ids[m.Link])
	}

	return StepResult{
		Name: "Classify",
		Summary: fmt.Sprintf("Matched %d of %d articles (%d batches, %d skipped)",
			len(result.Matched), result.Total, result.Batches, result.BatchesSkipped),
	}, result, matchedIDs
}

func (p *Pipeline) runRecord(runID, topic string, startedAt time.Time, result *classify.Result, matchedIDs []int64) StepResult {
	log.Println("Step 4/4: Recording run...")

	run := store.Run{
		ID:              runID,
		Topic:           topic,
		StartedAt:       startedAt.Format(time.RFC3339),
		TotalArticles:   result.Total,
		MatchedArticles: len(result.Matched),
		Batches:         result.Batches,
		BatchesSkipped:  result.BatchesSkipped,
		ReportMarkdown:  report.Build(runID, topic, startedAt, result),
	}
	if err := p.db.InsertRun(run, matchedIDs); err != nil {
		return StepResult{Name: "Record", Err: fmt.Errorf("recording run: %w", err)}
	}

	return StepResult{
		Name:    "Record",
		Summary: fmt.Sprintf("Run %s recorded with %d matches", runID, len(matchedIDs)),
	}
}

func (p *Pipeline) classifyOptions() classify.Options {
	cc := p.cfg.Classifier
	return classify.Options{
		BatchSize:       cc.BatchSize,
		MaxContentChars: cc.MaxContentChars,
		BatchDelay:      time.Duration(cc.BatchDelaySeconds) * time.Second,
		Retry: retry.Policy{
			MaxAttempts: cc.Retry.MaxAttempts,
			BaseDelay:   time.Duration(cc.Retry.BaseDelaySeconds) * time.Second,
			MaxDelay:    time.Duration(cc.Retry.MaxDelaySeconds) * time.Second,
			Multiplier:  2,
		},
		OutputDir: p.cfg.OutputDir(),
		Reporter:  p.reporter,
	}
}
