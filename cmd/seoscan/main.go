package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/seoscan/internal/completion"
	"github.com/go-scripts/seoscan/internal/crawler"
	"github.com/go-scripts/seoscan/internal/enhancer"
	"github.com/go-scripts/seoscan/internal/pipeline"
	"github.com/go-scripts/seoscan/internal/progress"
)

type analyzeCmd struct {
	URL        string        `help:"Site to analyze." short:"u" required:""`
	Competitor string        `help:"Competitor site for gap analysis." short:"c"`
	MaxPages   int           `help:"Maximum pages to crawl." default:"50"`
	Delay      time.Duration `help:"Delay between crawl batches." default:"500ms"`
	External   bool          `help:"Follow links to external hosts."`
	Rendered   bool          `help:"Fetch pages through a headless browser."`
	AIEndpoint string        `help:"Chat-completion endpoint for AI-assisted analysis." env:"SEOSCAN_AI_ENDPOINT"`
	User       string        `help:"User ID recorded with the analysis." default:"local"`
}

type historyCmd struct {
	User string `help:"User ID to list analyses for." default:"local"`
}

type deleteCmd struct {
	ID string `help:"Analysis ID to delete." arg:""`
}

type cli struct {
	Analyze analyzeCmd `cmd:"" help:"Crawl a site and produce SEO diagnostics."`
	History historyCmd `cmd:"" help:"List saved analyses."`
	Delete  deleteCmd  `cmd:"" help:"Delete a saved analysis."`

	OutputDir string `help:"Directory for saved analyses." default:"analyses"`
	Debug     bool   `help:"Enable debug logging."`
}

func (c *analyzeCmd) Run(root *cli) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	storage, err := pipeline.NewFileStorage(root.OutputDir)
	if err != nil {
		return err
	}

	var crawl *crawler.Crawler
	if c.Rendered {
		rendered := crawler.NewRenderedFetcher(2 * time.Second)
		defer rendered.Close()
		crawl = crawler.NewWithFetcher(rendered)
	} else {
		crawl = crawler.New()
	}

	var svc completion.Service
	if c.AIEndpoint != "" {
		client, err := completion.NewClient(completion.Config{Endpoint: c.AIEndpoint})
		if err != nil {
			return err
		}
		svc = client
	} else {
		log.Info("no AI endpoint configured, running heuristic analysis only")
	}
	enh := enhancer.New(svc, enhancer.DefaultOptions())

	sink := progress.NewSpinnerSink()
	defer sink.Stop()

	p := pipeline.New(crawl, enh, storage, sink)
	rec, err := p.Run(ctx, pipeline.RunRequest{
		StartURL:       c.URL,
		CompetitorURL:  c.Competitor,
		UserID:         c.User,
		MaxPages:       c.MaxPages,
		Delay:          c.Delay,
		FollowExternal: c.External,
	})
	sink.Stop()
	if err != nil {
		return err
	}

	printSummary(rec)
	return nil
}

func printSummary(rec *pipeline.Record) {
	fmt.Printf("\nAnalysis %s\n", rec.ID)
	fmt.Printf("  pages crawled: %d (%d failures)\n", len(rec.Pages), rec.CrawlFailures)
	for contentType, result := range rec.Duplication {
		fmt.Printf("  %s: %d duplicate groups, %d template patterns, %d intent conflicts\n",
			contentType, len(result.DuplicateGroups), len(result.TemplatePatterns), len(result.IntentConflicts))
	}
	if rec.Gap != nil {
		fmt.Printf("  topical coverage: %d%%\n", rec.Gap.TopicalCoverage.CoverageScore)
		fmt.Printf("  missing topics: %d, opportunity keywords: %d, volume gaps: %d\n",
			len(rec.Gap.MissingTopics), len(rec.Gap.OpportunityKeywords), len(rec.Gap.ContentVolumeGaps))
	}
}

func (c *historyCmd) Run(root *cli) error {
	storage, err := pipeline.NewFileStorage(root.OutputDir)
	if err != nil {
		return err
	}
	records, err := storage.LoadHistory(context.Background(), c.User)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no saved analyses")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %s  %s  %d pages\n",
			rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.SiteURL, len(rec.Pages))
	}
	return nil
}

func (c *deleteCmd) Run(root *cli) error {
	storage, err := pipeline.NewFileStorage(root.OutputDir)
	if err != nil {
		return err
	}
	return storage.DeleteAnalysis(context.Background(), c.ID)
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("seoscan"),
		kong.Description("Crawl a website and produce SEO diagnostics, duplicate-content findings and competitive gap analysis."),
	)

	if c.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := ctx.Run(&c); err != nil {
		log.Fatal("command failed", "error", err)
	}
}
