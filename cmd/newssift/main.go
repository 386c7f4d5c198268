package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"newssift/internal/article"
	"newssift/internal/classify"
	"newssift/internal/collect"
	"newssift/internal/config"
	"newssift/internal/fetch"
	"newssift/internal/llm"
	"newssift/internal/pipeline"
	"newssift/internal/retry"
	"newssift/internal/schedule"
	"newssift/internal/server"
	"newssift/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newssift",
	Short:   "Topical news filtering",
	Long:    "newssift collects news articles from RSS feeds and keeps the ones an LLM judges relevant to a topic.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return cfg.Validate()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newssift", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newssift/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, the topic, and the API key.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Articles:")
		fmt.Printf("  Total collected: %d\n", stats.TotalArticles)
		fmt.Printf("  Content fetched: %d\n", stats.FetchedArticles)
		fmt.Printf("  Matched by a run: %d\n", stats.MatchedArticles)
		fmt.Println("\nFilter runs:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		fmt.Printf("  Distinct topics: %d\n", stats.Topics)
		return nil
	},
}

// --- collect command ---

var collectDaysBack int

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect articles from configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		daysBack := collectDaysBack
		if daysBack <= 0 {
			daysBack = cfg.Collect.DaysBack
		}

		fmt.Println("Collecting articles from feeds...")
		collector := collect.New(configFeeds(), daysBack, cfg.Collect.MaxPerFeed)
		records, result := collector.Collect(context.Background())

		created := 0
		for _, rec := range records {
			_, isNew, err := db.UpsertArticle(rec)
			if err != nil {
				log.Printf("Failed to store %s: %v", rec.Link, err)
				continue
			}
			if isNew {
				created++
			}
		}

		if len(records) > 0 {
			path := filepath.Join(cfg.OutputDir(), "articles.json")
			if err := article.WriteSnapshot(path, records); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Printf("Wrote %s\n", path)
		}

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New articles: %d\n", created)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		if result.FeedErrors > 0 {
			fmt.Printf("  Feed errors: %d\n", result.FeedErrors)
		}

		if len(result.Sources) > 0 {
			fmt.Println("\nArticles by source:")
			// Sort sources by count descending
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().IntVar(&collectDaysBack, "days-back", 0, "Override lookback window (days)")
}

// --- fetch command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch full content for collected articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Println("Fetching article content...")
		fetcher := fetch.New(db, 15*time.Second)
		result := fetcher.FetchMissing(context.Background())
		fmt.Printf("Fetched %d articles, %d failed\n", result.Fetched, result.Failed)
		return nil
	},
}

// --- filter command ---

var filterInput string

var filterCmd = &cobra.Command{
	Use:   "filter <topic>",
	Short: "Filter a JSON article file by topic",
	Long: `Filter reads a JSON array of collected articles and keeps the ones an LLM
judges relevant to the topic. Matches are written to the output directory
as filtered_articles_<topic>.json.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := filterInput
		if input == "" {
			input = filepath.Join(cfg.OutputDir(), "articles.json")
		}

		articles, err := article.ReadFile(input)
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			fmt.Printf("No articles in %s\n", input)
			return nil
		}

		service := newChatService()
		if !service.IsConfigured() {
			return fmt.Errorf("no API key configured; set classifier.api_key or OPENAI_API_KEY")
		}

		fmt.Printf("Filtering %d articles from %s\n", len(articles), input)
		opts := classifyOptions()
		opts.Reporter = reporter()

		classifier := classify.New(service, args[0], opts)
		result := classifier.Classify(context.Background(), articles)

		fmt.Printf("\nMatched %d of %d articles", len(result.Matched), result.Total)
		if result.BatchesSkipped > 0 {
			fmt.Printf(" (%d of %d batches skipped)", result.BatchesSkipped, result.Batches)
		}
		fmt.Println()
		fmt.Printf("Wrote %s\n", filepath.Join(cfg.OutputDir(), article.SnapshotFilename(classifier.Topic())))
		return nil
	},
}

func init() {
	filterCmd.Flags().StringVarP(&filterInput, "input", "i", "", "Article JSON file (default <output_dir>/articles.json)")
}

// --- run command ---

var (
	runTopic    string
	runDaysBack int
	runSample   bool
	skipCollect bool
	dryRun      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> fetch -> classify -> record",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		service := newChatService()
		if !dryRun && !service.IsConfigured() {
			return fmt.Errorf("no API key configured; set classifier.api_key or OPENAI_API_KEY")
		}

		pipe := pipeline.New(cfg, db, service, reporter())

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(runTopic)
		} else {
			result = pipe.Run(context.Background(), pipeline.RunOptions{
				Topic:       runTopic,
				DaysBack:    runDaysBack,
				Sample:      runSample,
				SkipCollect: skipCollect,
			})
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun {
			fmt.Println("\nPipeline complete! Run 'newssift serve' to browse the results.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runTopic, "topic", "t", "", "Topic to filter for (default from config)")
	runCmd.Flags().IntVar(&runDaysBack, "days-back", 0, "Override lookback window (days)")
	runCmd.Flags().BoolVar(&runSample, "sample", false, "Classify only the first stored article")
	runCmd.Flags().BoolVar(&skipCollect, "skip-collect", false, "Reuse stored articles instead of hitting feeds")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run the server on (default from config)")
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on the configured cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		service := newChatService()
		if !service.IsConfigured() {
			return fmt.Errorf("no API key configured; set classifier.api_key or OPENAI_API_KEY")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipe := pipeline.New(cfg, db, service, reporter())
		job := func() {
			result := pipe.Run(ctx, pipeline.RunOptions{})
			for _, step := range result.Steps {
				if step.Err != nil {
					log.Printf("%s failed: %v", step.Name, step.Err)
				} else {
					log.Printf("%s: %s", step.Name, step.Summary)
				}
			}
		}

		runner, err := schedule.New(cfg.Schedule.Cron, cfg.Schedule.Timezone, job)
		if err != nil {
			return err
		}

		fmt.Printf("Scheduling pipeline runs (%s, %s)\n", cfg.Schedule.Cron, cfg.Schedule.Timezone)
		fmt.Println("Press Ctrl+C to stop")
		runner.Run(ctx)
		return nil
	},
}

// --- helpers ---

func openDB() (*store.DB, error) {
	return store.Open(cfg.StoragePath())
}

func newChatService() *llm.Client {
	cc := cfg.Classifier
	return llm.NewClient(cc.APIKey,
		llm.WithModel(cc.Model),
		llm.WithBaseURL(cc.BaseURL),
		llm.WithTemperature(cc.Temperature),
	)
}

func configFeeds() []collect.Feed {
	feeds := make([]collect.Feed, len(cfg.Feeds))
	for i, f := range cfg.Feeds {
		feeds[i] = collect.Feed{URL: f.URL, Name: f.Name, Category: f.Category}
	}
	return feeds
}

func classifyOptions() classify.Options {
	cc := cfg.Classifier
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
		OutputDir: cfg.OutputDir(),
		Reporter:  reporter(),
	}
}

// reporter returns a progress reporter when verbose output is on, nil
// otherwise.
func reporter() classify.Reporter {
	if !verbose {
		return nil
	}
	return classify.ReporterFunc(func(msg string) { fmt.Println(msg) })
}
