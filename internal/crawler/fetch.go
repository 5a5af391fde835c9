package crawler

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
)

// Fetcher retrieves one page body. Implementations must honor ctx so an
// in-flight batch can be abandoned when the crawl is cancelled.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (body []byte, contentType string, err error)
}

// HTTPFetcher fetches pages with a plain HTTP client. It is the default
// fetcher; RenderedFetcher exists for sites that only produce content through
// JavaScript.
type HTTPFetcher struct {
	client    *http.Client
	sizeCap   int64
	userAgent string
}

// NewHTTPFetcher builds a fetcher with a tuned transport and a response size
// cap so a single huge page cannot exhaust memory.
func NewHTTPFetcher(timeout time.Duration, sizeCap int64, userAgent string) *HTTPFetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		sizeCap:   sizeCap,
		userAgent: userAgent,
	}
}

// Client exposes the underlying HTTP client so the crawler can reuse it for
// the robots.txt fetch.
func (h *HTTPFetcher) Client() *http.Client {
	return h.client
}

func (h *HTTPFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("http status %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, "", err
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, h.sizeCap))
	if err != nil {
		return nil, "", err
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// IsHTML reports whether a Content-Type names an HTML document. An empty
// content type is accepted since some servers omit the header.
func IsHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	return strings.Contains(mediaType, "text/html") ||
		strings.Contains(mediaType, "application/xhtml+xml")
}
