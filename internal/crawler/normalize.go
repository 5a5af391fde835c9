package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Tracking parameters stripped during normalization. utm_* is matched by prefix.
var trackingParams = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
	"_ga":    {},
}

// Normalize canonicalizes a URL so that two spellings of the same page map to
// the same crawl unit. It drops the fragment, lowercases scheme and host,
// strips a leading "www." label, drops default ports, removes tracking query
// parameters and trims the trailing slash from non-root paths. Normalize is
// idempotent: Normalize(Normalize(u)) == Normalize(u).
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q missing scheme or host", rawURL)
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	host := u.Hostname()
	host = strings.TrimPrefix(host, "www.")
	port := u.Port()
	switch {
	case port == "80" && u.Scheme == "http", port == "443" && u.Scheme == "https", port == "":
		u.Host = host
	default:
		u.Host = host + ":" + port
	}

	if u.RawQuery != "" {
		vals := u.Query()
		for key := range vals {
			lower := strings.ToLower(key)
			if _, ok := trackingParams[lower]; ok || strings.HasPrefix(lower, "utm_") {
				vals.Del(key)
			}
		}
		u.RawQuery = vals.Encode()
	}

	switch u.Path {
	case "", "/":
		u.Path = "/"
	default:
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// SiteRoot returns the scheme+host root of a URL, which is where every crawl
// session starts regardless of the page it was asked about.
func SiteRoot(rawURL string) (string, error) {
	norm, err := Normalize(rawURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(norm)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String(), nil
}

// resolveLink resolves href against the page it appeared on and normalizes the
// result. Relative links become absolute here.
func resolveLink(pageURL, href string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return Normalize(base.ResolveReference(ref).String())
}
