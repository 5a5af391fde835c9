package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/temoto/robotstxt"
)

const robotsBodyLimit = 2 << 20

// RobotsFilter encodes the crawl permissions for a single host. A nil rules
// set means robots.txt could not be fetched or parsed; the filter is then
// permissive, so a broken or missing robots.txt never blocks a crawl.
type RobotsFilter struct {
	rules *robotstxt.RobotsData
	agent string
}

// FetchRobots retrieves and parses robots.txt for the host of siteRoot. Every
// failure path returns a permissive filter; robots problems are never fatal.
func FetchRobots(ctx context.Context, client *http.Client, siteRoot, agent string) *RobotsFilter {
	permissive := &RobotsFilter{agent: agent}

	root, err := url.Parse(siteRoot)
	if err != nil {
		return permissive
	}
	robotsURL := (&url.URL{Scheme: root.Scheme, Host: root.Host, Path: "/robots.txt"}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return permissive
	}
	req.Header.Set("User-Agent", agent)

	resp, err := client.Do(req)
	if err != nil {
		log.Debug("robots.txt unavailable, crawling permissively", "url", robotsURL, "error", err)
		return permissive
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Debug("robots.txt returned error status, crawling permissively", "url", robotsURL, "status", resp.StatusCode)
		return permissive
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsBodyLimit))
	if err != nil {
		return permissive
	}

	rules, err := robotstxt.FromBytes(body)
	if err != nil {
		log.Debug("robots.txt unparsable, crawling permissively", "url", robotsURL, "error", err)
		return permissive
	}

	return &RobotsFilter{rules: rules, agent: agent}
}

// Allowed reports whether the crawler may fetch the given path. Allow
// directives override Disallow within the group that applies to this agent
// (or "*" when no specific group exists); robotstxt handles that resolution.
func (rf *RobotsFilter) Allowed(path string) bool {
	if rf == nil || rf.rules == nil {
		return true
	}
	group := rf.rules.FindGroup(rf.agent)
	if group == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}
