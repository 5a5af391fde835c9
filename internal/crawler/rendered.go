package crawler

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// RenderedFetcher fetches pages through a headless browser so that content
// injected by JavaScript is visible to the extractor. One browser process is
// shared across the crawl; every Fetch opens its own tab.
type RenderedFetcher struct {
	browserCtx context.Context
	cancel     context.CancelFunc
	waitTime   time.Duration
}

// NewRenderedFetcher starts the shared headless browser. Callers must Close
// the fetcher to shut the browser down.
func NewRenderedFetcher(waitTime time.Duration) *RenderedFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &RenderedFetcher{
		browserCtx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		waitTime: waitTime,
	}
}

// Close shuts down the shared browser.
func (r *RenderedFetcher) Close() {
	r.cancel()
}

func (r *RenderedFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, string, error) {
	tabCtx, tabCancel := chromedp.NewContext(r.browserCtx)
	defer tabCancel()

	timeoutCtx, timeoutCancel := context.WithCancel(tabCtx)
	defer timeoutCancel()
	go func() {
		select {
		case <-ctx.Done():
			timeoutCancel()
		case <-timeoutCtx.Done():
		}
	}()

	tasks := []chromedp.Action{
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
	}
	if r.waitTime > 0 {
		tasks = append(tasks, chromedp.Sleep(r.waitTime))
	}

	var pageHTML string
	tasks = append(tasks, chromedp.OuterHTML("html", &pageHTML))

	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, "", err
	}

	return []byte(pageHTML), "text/html; charset=utf-8", nil
}
