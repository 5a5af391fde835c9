// Package crawler discovers and fetches a site's pages in priority order
// under a page-count budget, honoring robots.txt.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/publicsuffix"

	"github.com/go-scripts/seoscan/internal/extractor"
	"github.com/go-scripts/seoscan/internal/progress"
)

// ErrCancelled is returned when the crawl's context is cancelled. A cancelled
// crawl returns no partial results.
var ErrCancelled = errors.New("crawl cancelled")

const (
	batchConcurrency = 3
	defaultUserAgent = "seoscan/1.0 (+https://github.com/go-scripts/seoscan)"
	defaultSizeCap   = 5 << 20
)

// Options configure one crawl invocation.
type Options struct {
	MaxPages       int
	Delay          time.Duration
	FollowExternal bool
	Sink           progress.Sink
}

// Result is what a completed crawl produced. URLs lists the indexable pages
// (fetched, HTML, not noindex); Records carries their extracted signals so
// downstream analyzers need no second fetch. Failures counts pages that were
// attempted but could not be fetched or parsed.
type Result struct {
	URLs     []string
	Records  []*extractor.PageRecord
	Failures int
}

// Crawler fetches sites. The value holds only configuration and
// collaborators; all per-crawl state lives inside Crawl, so one Crawler is
// safe for any number of concurrent Crawl calls.
type Crawler struct {
	fetcher   Fetcher
	http      *HTTPFetcher
	userAgent string
}

// New builds a Crawler using plain HTTP fetching.
func New() *Crawler {
	h := NewHTTPFetcher(30*time.Second, defaultSizeCap, defaultUserAgent)
	return &Crawler{fetcher: h, http: h, userAgent: defaultUserAgent}
}

// NewWithFetcher builds a Crawler that fetches pages through the given
// fetcher (e.g. a RenderedFetcher) while still using plain HTTP for
// robots.txt.
func NewWithFetcher(f Fetcher) *Crawler {
	c := New()
	c.fetcher = f
	return c
}

// session is the state of one crawl invocation. It is allocated fresh per
// call and never shared between crawls, even of the same site.
type session struct {
	discovered map[string]struct{}
	crawled    map[string]struct{}
	robots     *RobotsFilter
	queue      targetQueue
	siteHost   string
	siteETLD1  string
	opts       Options
	failures   int
}

type fetchOutcome struct {
	target CrawlTarget
	record *extractor.PageRecord
	err    error
}

// Crawl walks the site containing startURL and returns the indexable pages.
// It always begins from the site root; if startURL is a sub-page both are
// seeded ahead of everything else. Cancellation is observed once per batch
// iteration and discards all results.
func (c *Crawler) Crawl(ctx context.Context, startURL string, opts Options) (*Result, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 50
	}

	start, err := Normalize(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start url: %w", err)
	}
	root, err := SiteRoot(start)
	if err != nil {
		return nil, err
	}
	rootURL, _ := url.Parse(root)

	s := &session{
		discovered: map[string]struct{}{},
		crawled:    map[string]struct{}{},
		siteHost:   rootURL.Hostname(),
		opts:       opts,
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(s.siteHost); err == nil {
		s.siteETLD1 = strings.ToLower(etld1)
	}

	s.robots = FetchRobots(ctx, c.http.Client(), root, c.userAgent)

	s.discovered[root] = struct{}{}
	s.queue.push(CrawlTarget{URL: root, Priority: priorityRootSeed})
	if start != root {
		s.discovered[start] = struct{}{}
		s.queue.push(CrawlTarget{URL: start, Priority: priorityStartSeed})
	}

	log.Info("crawl started", "site", root, "max_pages", opts.MaxPages)

	var result Result
	for !s.queue.empty() && len(s.crawled) < opts.MaxPages {
		if err := ctx.Err(); err != nil {
			log.Info("crawl cancelled", "site", root, "crawled", len(s.crawled))
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		remaining := opts.MaxPages - len(s.crawled)
		size := batchConcurrency
		if remaining < size {
			size = remaining
		}
		batch := s.queue.popBatch(size)

		outcomes := make([]fetchOutcome, len(batch))
		var wg sync.WaitGroup
		for i, target := range batch {
			wg.Add(1)
			go func(i int, target CrawlTarget) {
				defer wg.Done()
				outcomes[i] = c.fetchOne(ctx, target)
			}(i, target)
		}
		wg.Wait()

		for _, out := range outcomes {
			s.crawled[out.target.URL] = struct{}{}
			if out.err != nil {
				s.failures++
				log.Error("page fetch failed", "url", out.target.URL, "error", out.err)
				continue
			}
			if out.record == nil {
				continue // non-HTML, silently skipped
			}

			if !out.record.NoIndex {
				result.URLs = append(result.URLs, out.target.URL)
				result.Records = append(result.Records, out.record)
			}
			if !out.record.NoFollow {
				s.enqueueLinks(out.target.URL, out.record.OutboundLinks)
			}

			progress.Emit(opts.Sink, progress.Event{
				PagesCrawled:    len(s.crawled),
				TotalDiscovered: len(s.discovered),
				Message:         out.target.URL,
			})
		}

		if opts.Delay > 0 && !s.queue.empty() {
			time.Sleep(opts.Delay)
		}
	}

	result.Failures = s.failures
	progress.Emit(opts.Sink, progress.Event{
		PagesCrawled:    len(s.crawled),
		TotalDiscovered: len(s.discovered),
		Message:         fmt.Sprintf("crawl complete, %d failures", s.failures),
	})
	log.Info("crawl finished", "site", root, "pages", len(result.URLs), "failures", s.failures)

	return &result, nil
}

func (c *Crawler) fetchOne(ctx context.Context, target CrawlTarget) fetchOutcome {
	body, contentType, err := c.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		return fetchOutcome{target: target, err: err}
	}
	if !IsHTML(contentType) {
		return fetchOutcome{target: target}
	}
	record, err := extractor.Extract(target.URL, body, contentType)
	if err != nil {
		return fetchOutcome{target: target, err: err}
	}
	return fetchOutcome{target: target, record: record}
}

// enqueueLinks filters, normalizes, scores and enqueues links found on a
// page. The discovered set is capped at MaxPages so the frontier cannot grow
// without bound.
func (s *session) enqueueLinks(pageURL string, links []string) {
	for _, href := range links {
		if skipHref(href) {
			continue
		}
		norm, err := resolveLink(pageURL, href)
		if err != nil {
			continue
		}
		u, err := url.Parse(norm)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}

		internal := s.isInternal(u.Hostname())
		if !internal && !s.opts.FollowExternal {
			continue
		}
		if _, ok := s.discovered[norm]; ok {
			continue
		}
		if _, ok := s.crawled[norm]; ok {
			continue
		}
		if internal && !s.robots.Allowed(u.Path) {
			continue
		}
		if len(s.discovered) >= s.opts.MaxPages {
			return
		}

		s.discovered[norm] = struct{}{}
		s.queue.push(CrawlTarget{URL: norm, Priority: scorePriority(norm)})
	}
}

// isInternal treats any host under the site's registered domain as part of
// the site, so blog.example.com belongs to example.com.
func (s *session) isInternal(host string) bool {
	if strings.EqualFold(host, s.siteHost) {
		return true
	}
	if s.siteETLD1 == "" {
		return false
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	return strings.EqualFold(etld1, s.siteETLD1)
}

func skipHref(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	return h == "" ||
		strings.HasPrefix(h, "#") ||
		strings.HasPrefix(h, "javascript:") ||
		strings.HasPrefix(h, "mailto:") ||
		strings.HasPrefix(h, "tel:")
}
