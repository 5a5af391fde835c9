// Package pipeline wires the crawl, duplicate detection, AI enhancement and
// gap analysis stages into one run, and persists the outcome through the
// Storage port.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/seoscan/internal/crawler"
	"github.com/go-scripts/seoscan/internal/enhancer"
	"github.com/go-scripts/seoscan/internal/extractor"
	"github.com/go-scripts/seoscan/internal/gap"
	"github.com/go-scripts/seoscan/internal/progress"
	"github.com/go-scripts/seoscan/internal/similarity"
)

// Content types analyzed for duplication.
const (
	ContentTypeTitle   = "title"
	ContentTypeMeta    = "metaDescription"
	ContentTypeHeading = "heading"
)

// Record is one persisted analysis.
type Record struct {
	ID            string                      `json:"id"`
	UserID        string                      `json:"userId"`
	SiteURL       string                      `json:"siteUrl"`
	CompetitorURL string                      `json:"competitorUrl,omitempty"`
	CreatedAt     time.Time                   `json:"createdAt"`
	Pages         []*extractor.PageRecord     `json:"pages"`
	CrawlFailures int                         `json:"crawlFailures"`
	Duplication   map[string]*enhancer.Result `json:"duplication"`
	Gap           *gap.Result                 `json:"gap,omitempty"`
}

// RunRequest describes one analysis run.
type RunRequest struct {
	StartURL       string
	CompetitorURL  string
	UserID         string
	MaxPages       int
	Delay          time.Duration
	FollowExternal bool
}

// Pipeline owns the stage collaborators. All of them are safe for concurrent
// runs; per-run state lives on the stack of Run.
type Pipeline struct {
	crawler  *crawler.Crawler
	enhancer *enhancer.Enhancer
	storage  Storage
	sink     progress.Sink
	gapOpts  gap.Options
}

// New assembles a pipeline. storage is required; sink may be nil.
func New(c *crawler.Crawler, e *enhancer.Enhancer, storage Storage, sink progress.Sink) *Pipeline {
	return &Pipeline{
		crawler:  c,
		enhancer: e,
		storage:  storage,
		sink:     sink,
		gapOpts:  gap.DefaultOptions(),
	}
}

// Run executes the full analysis and saves it. Storage errors surface to the
// caller: a completed analysis is never silently lost.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*Record, error) {
	crawlRes, err := p.crawler.Crawl(ctx, req.StartURL, crawler.Options{
		MaxPages:       req.MaxPages,
		Delay:          req.Delay,
		FollowExternal: req.FollowExternal,
		Sink:           p.sink,
	})
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", req.StartURL, err)
	}

	rec := &Record{
		UserID:        req.UserID,
		SiteURL:       req.StartURL,
		CompetitorURL: req.CompetitorURL,
		CreatedAt:     time.Now().UTC(),
		Pages:         crawlRes.Records,
		CrawlFailures: crawlRes.Failures,
		Duplication:   map[string]*enhancer.Result{},
	}

	for contentType, items := range contentItems(crawlRes.Records) {
		progress.Emit(p.sink, progress.Event{
			PagesCrawled:    len(crawlRes.URLs),
			TotalDiscovered: len(crawlRes.URLs),
			Message:         "analyzing " + contentType + " duplication",
		})
		rec.Duplication[contentType] = p.enhancer.Enhance(ctx, items, contentType)
	}

	if req.CompetitorURL != "" {
		progress.Emit(p.sink, progress.Event{
			PagesCrawled:    len(crawlRes.URLs),
			TotalDiscovered: len(crawlRes.URLs),
			Message:         "crawling competitor " + req.CompetitorURL,
		})
		compRes, err := p.crawler.Crawl(ctx, req.CompetitorURL, crawler.Options{
			MaxPages:       req.MaxPages,
			Delay:          req.Delay,
			FollowExternal: req.FollowExternal,
			Sink:           p.sink,
		})
		if err != nil {
			return nil, fmt.Errorf("crawl competitor %s: %w", req.CompetitorURL, err)
		}
		rec.Gap = gap.AnalyzeGaps(crawlRes.Records, compRes.Records, p.gapOpts)
	}

	id, err := p.storage.SaveAnalysis(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	rec.ID = id

	if req.UserID != "" {
		if err := p.storage.IncrementUsage(ctx, req.UserID, len(crawlRes.URLs)); err != nil {
			return nil, fmt.Errorf("record usage: %w", err)
		}
	}

	log.Info("analysis complete", "id", rec.ID, "pages", len(rec.Pages), "failures", rec.CrawlFailures)
	return rec, nil
}

// contentItems derives the per-content-type item lists feeding duplication
// analysis from the crawled page records.
func contentItems(pages []*extractor.PageRecord) map[string][]similarity.ContentItem {
	items := map[string][]similarity.ContentItem{}
	for _, page := range pages {
		if page.Title != "" {
			items[ContentTypeTitle] = append(items[ContentTypeTitle],
				similarity.ContentItem{Content: page.Title, URL: page.URL})
		}
		if page.MetaDescription != "" {
			items[ContentTypeMeta] = append(items[ContentTypeMeta],
				similarity.ContentItem{Content: page.MetaDescription, URL: page.URL})
		}
		for _, h := range page.Headings {
			if h.Level <= 2 && h.Text != "" {
				items[ContentTypeHeading] = append(items[ContentTypeHeading],
					similarity.ContentItem{Content: h.Text, URL: page.URL})
			}
		}
	}
	return items
}
