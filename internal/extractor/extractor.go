// Package extractor turns raw HTML into a typed PageRecord. Shape validation
// happens once here; downstream analyzers trust the record as-is.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const (
	rawTextSampleLimit = 500
	keywordDensityTop  = 20
	minKeywordLength   = 3
)

// Heading is one h1–h6 element with its level.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Image is an img element's src and alt text.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// KeywordStat is one keyword's count and density (percent of total words).
type KeywordStat struct {
	Keyword string  `json:"keyword"`
	Count   int     `json:"count"`
	Density float64 `json:"density"`
}

// PageRecord is the structured signal set for one fetched page. It is
// immutable once produced.
type PageRecord struct {
	URL             string        `json:"url"`
	Title           string        `json:"title"`
	MetaDescription string        `json:"metaDescription"`
	Headings        []Heading     `json:"headings"`
	Images          []Image       `json:"images"`
	WordCount       int           `json:"wordCount"`
	KeywordDensity  []KeywordStat `json:"keywordDensity"`
	InternalLinks   []string      `json:"internalLinks"`
	RawTextSample   string        `json:"rawTextSample"`

	// Crawl directives and raw outbound links, consumed by the crawler only.
	NoIndex       bool     `json:"-"`
	NoFollow      bool     `json:"-"`
	OutboundLinks []string `json:"-"`
}

var whitespaceRe = regexp.MustCompile(`\s+`)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "to": {}, "in": {}, "a": {}, "for": {}, "is": {}, "on": {},
	"with": {}, "as": {}, "by": {}, "at": {}, "from": {}, "that": {}, "this": {}, "it": {},
	"an": {}, "be": {}, "or": {}, "are": {}, "was": {}, "will": {}, "has": {}, "have": {},
	"had": {}, "but": {}, "not": {}, "your": {}, "you": {}, "we": {}, "our": {}, "can": {},
	"all": {}, "more": {}, "their": {}, "they": {}, "its": {}, "about": {}, "into": {},
}

// Extract parses one HTML document into a PageRecord.
func Extract(pageURL string, body []byte, contentType string) (*PageRecord, error) {
	enc, _, _ := charset.DetermineEncoding(body, contentType)
	utf8Body, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		if !utf8.Valid(body) {
			return nil, fmt.Errorf("decode %s: %w", pageURL, err)
		}
		utf8Body = body
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	doc.Find("script,noscript,style").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	rec := &PageRecord{URL: pageURL}

	rec.Title = cleanText(doc.Find("title").First().Text())
	rec.MetaDescription = cleanText(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	if rec.MetaDescription == "" {
		rec.MetaDescription = cleanText(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	}

	robotsMeta := strings.ToLower(doc.Find(`meta[name="robots"]`).AttrOr("content", ""))
	rec.NoIndex = strings.Contains(robotsMeta, "noindex")
	rec.NoFollow = strings.Contains(robotsMeta, "nofollow")

	doc.Find("h1,h2,h3,h4,h5,h6").Each(func(i int, s *goquery.Selection) {
		text := cleanText(s.Text())
		if text == "" {
			return
		}
		level, err := strconv.Atoi(strings.TrimPrefix(goquery.NodeName(s), "h"))
		if err != nil {
			return
		}
		rec.Headings = append(rec.Headings, Heading{Level: level, Text: text})
	})

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			return
		}
		rec.Images = append(rec.Images, Image{
			Src: strings.TrimSpace(src),
			Alt: cleanText(s.AttrOr("alt", "")),
		})
	})

	var parts []string
	doc.Find("p,li,td,blockquote").Each(func(i int, s *goquery.Selection) {
		if t := cleanText(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	text := strings.Join(parts, " ")
	if text == "" {
		text = cleanText(doc.Find("body").Text())
	}
	words := strings.Fields(text)
	rec.WordCount = len(words)
	rec.RawTextSample = truncate(text, rawTextSampleLimit)
	rec.KeywordDensity = keywordDensity(text, rec.WordCount)

	rec.OutboundLinks, rec.InternalLinks = collectLinks(doc, pageURL)

	return rec, nil
}

// collectLinks returns every href on the page plus the subset pointing at the
// page's own host (resolved, for the internal-link signal).
func collectLinks(doc *goquery.Document, pageURL string) (outbound, internal []string) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil
	}
	seen := map[string]struct{}{}
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		outbound = append(outbound, href)

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Hostname(), base.Hostname()) {
			return
		}
		abs.Fragment = ""
		link := abs.String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		internal = append(internal, link)
	})
	return outbound, internal
}

func keywordDensity(text string, wordCount int) []KeywordStat {
	if wordCount == 0 {
		return nil
	}
	freq := map[string]int{}
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range tokens {
		if len(w) < minKeywordLength {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		freq[w]++
	}

	stats := make([]KeywordStat, 0, len(freq))
	for kw, count := range freq {
		stats = append(stats, KeywordStat{
			Keyword: kw,
			Count:   count,
			Density: float64(count) / float64(wordCount) * 100,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Keyword < stats[j].Keyword
		}
		return stats[i].Count > stats[j].Count
	})
	if len(stats) > keywordDensityTop {
		stats = stats[:keywordDensityTop]
	}
	return stats
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
