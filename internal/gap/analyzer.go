// Package gap compares two crawled page sets and scores the competitive
// opportunities: topics the competitor covers and the main site does not,
// keywords only the competitor targets, content areas where the competitor
// publishes more, and on-page quality gaps. All functions are pure.
package gap

import (
	"math"
	"sort"
	"strings"

	"github.com/go-scripts/seoscan/internal/extractor"
)

// Difficulty estimates for opportunity keywords.
const (
	DifficultyLow    = "low"
	DifficultyMedium = "medium"
	DifficultyHigh   = "high"
)

// Opportunity buckets for content volume gaps.
const (
	OpportunityHigh   = "high"
	OpportunityMedium = "medium"
	OpportunityLow    = "low"
)

// TopicCluster aggregates the pages of one site sharing a topic phrase.
type TopicCluster struct {
	Topic        string   `json:"topic"`
	PageCount    int      `json:"pageCount"`
	AvgWordCount int      `json:"avgWordCount"`
	Keywords     []string `json:"keywords"`
	Strength     int      `json:"strength"`
}

// KeywordGapEntry is a keyword the competitor targets and the main site does
// not (or barely does).
type KeywordGapEntry struct {
	Keyword         string  `json:"keyword"`
	CompetitorPages int     `json:"competitorPages"`
	MainPages       int     `json:"mainPages"`
	AvgDensity      float64 `json:"avgDensity"`
	Difficulty      string  `json:"difficulty"`
	Opportunity     int     `json:"opportunity"`
}

// VolumeGap reports a content area where the competitor publishes more pages.
type VolumeGap struct {
	Area            string `json:"area"`
	MainPages       int    `json:"mainPages"`
	CompetitorPages int    `json:"competitorPages"`
	Gap             int    `json:"gap"`
	Opportunity     string `json:"opportunity"`
}

// UnderOptimizedArea reports an on-page quality metric where the competitor
// clearly leads.
type UnderOptimizedArea struct {
	Metric          string  `json:"metric"`
	MainValue       float64 `json:"mainValue"`
	CompetitorValue float64 `json:"competitorValue"`
	Recommendation  string  `json:"recommendation"`
}

// TopicalCoverage summarizes how much of the combined topic space the main
// site covers.
type TopicalCoverage struct {
	MainTopics       int `json:"mainTopics"`
	CompetitorTopics int `json:"competitorTopics"`
	SharedTopics     int `json:"sharedTopics"`
	CoverageScore    int `json:"coverageScore"`
}

// Result is the full gap analysis.
type Result struct {
	MissingTopics       []TopicCluster       `json:"missingTopics"`
	UnderOptimizedAreas []UnderOptimizedArea `json:"underOptimizedAreas"`
	OpportunityKeywords []KeywordGapEntry    `json:"opportunityKeywords"`
	ContentVolumeGaps   []VolumeGap          `json:"contentVolumeGaps"`
	TopicalCoverage     TopicalCoverage      `json:"topicalCoverage"`
	KeywordGaps         []KeywordGapEntry    `json:"keywordGaps"`
}

// Options hold the analyzer's heuristic constants. The defaults are
// empirically chosen, not derived; they are exposed so callers can tune them.
type Options struct {
	MaxTopicsPerPage        int
	MinMissingTopicStrength int
	MaxMissingTopics        int
	TopicOverlapDedup       float64
	MaxOpportunityKeywords  int
	WordCountGapFactor      float64
	AltCoverageGapPoints    float64
	InternalLinkGapFactor   float64
	HeadingUsageGapPoints   float64
	VolumeGapHigh           int
	VolumeGapMedium         int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		MaxTopicsPerPage:        5,
		MinMissingTopicStrength: 30,
		MaxMissingTopics:        10,
		TopicOverlapDedup:       0.7,
		MaxOpportunityKeywords:  15,
		WordCountGapFactor:      1.5,
		AltCoverageGapPoints:    20,
		InternalLinkGapFactor:   1.5,
		HeadingUsageGapPoints:   15,
		VolumeGapHigh:           5,
		VolumeGapMedium:         2,
	}
}

var contentAreas = []string{"blog", "product", "service", "support", "about", "resource", "guide", "case-study"}

// AnalyzeGaps compares the main site's pages against a competitor's.
func AnalyzeGaps(mainPages, competitorPages []*extractor.PageRecord, opts Options) *Result {
	if opts.MaxTopicsPerPage == 0 {
		opts = DefaultOptions()
	}

	mainClusters := buildClusters(mainPages, opts)
	compClusters := buildClusters(competitorPages, opts)

	result := &Result{
		TopicalCoverage:     coverage(mainClusters, compClusters),
		MissingTopics:       missingTopics(mainClusters, compClusters, opts),
		ContentVolumeGaps:   volumeGaps(mainPages, competitorPages, opts),
		UnderOptimizedAreas: underOptimized(mainPages, competitorPages, opts),
	}

	result.KeywordGaps = keywordGaps(mainPages, competitorPages)
	result.OpportunityKeywords = topOpportunities(result.KeywordGaps, opts.MaxOpportunityKeywords)

	return result
}

// pageTopics extracts up to MaxTopicsPerPage topic phrases from a page's
// title, H1/H2 headings and URL path segments.
func pageTopics(page *extractor.PageRecord, opts Options) []string {
	var sources []string
	if page.Title != "" {
		sources = append(sources, page.Title)
	}
	for _, h := range page.Headings {
		if h.Level <= 2 {
			sources = append(sources, h.Text)
		}
	}

	seen := map[string]struct{}{}
	var topics []string
	add := func(topic string) {
		if topic == "" || len(topics) >= opts.MaxTopicsPerPage {
			return
		}
		if _, dup := seen[topic]; dup {
			return
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}

	for _, src := range sources {
		for _, phrase := range keyPhrases(src) {
			add(phrase)
		}
	}
	for _, token := range pathTokens(page.URL) {
		add(token)
	}
	return topics
}

// keyPhrases returns 2- and 3-word shingles that neither start nor end on a
// stopword.
func keyPhrases(text string) []string {
	words := tokenize(text)
	var phrases []string
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(words); i++ {
			first, last := words[i], words[i+n-1]
			if isStopword(first) || isStopword(last) {
				continue
			}
			phrases = append(phrases, strings.Join(words[i:i+n], " "))
		}
	}
	return phrases
}

func pathTokens(rawURL string) []string {
	path := rawURL
	if idx := strings.Index(path, "://"); idx >= 0 {
		path = path[idx+3:]
	}
	if idx := strings.Index(path, "/"); idx >= 0 {
		path = path[idx+1:]
	} else {
		path = ""
	}
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}

	var tokens []string
	for _, seg := range strings.Split(path, "/") {
		seg = strings.ToLower(strings.TrimSpace(seg))
		seg = strings.NewReplacer("-", " ", "_", " ").Replace(seg)
		if ext := strings.LastIndex(seg, "."); ext > 0 {
			seg = seg[:ext]
		}
		if len(seg) > 2 && !isStopword(seg) {
			tokens = append(tokens, seg)
		}
	}
	return tokens
}

// buildClusters groups a site's pages by shared topic and scores each
// cluster's strength: breadth of pages, content depth, and how well the
// clustered pages are optimized.
func buildClusters(pages []*extractor.PageRecord, opts Options) map[string]*TopicCluster {
	type agg struct {
		pages     []*extractor.PageRecord
		wordTotal int
		optimized int
	}
	byTopic := map[string]*agg{}

	for _, page := range pages {
		for _, topic := range pageTopics(page, opts) {
			a := byTopic[topic]
			if a == nil {
				a = &agg{}
				byTopic[topic] = a
			}
			a.pages = append(a.pages, page)
			a.wordTotal += page.WordCount
			if page.Title != "" && page.MetaDescription != "" && len(page.Headings) > 0 {
				a.optimized++
			}
		}
	}

	clusters := map[string]*TopicCluster{}
	for topic, a := range byTopic {
		count := len(a.pages)
		avgWords := a.wordTotal / count

		strength := count * 10
		if strength > 50 {
			strength = 50
		}
		switch {
		case avgWords >= 500:
			strength += 30
		case avgWords >= 300:
			strength += 20
		case avgWords >= 100:
			strength += 10
		}
		optimizedRatio := float64(a.optimized) / float64(count)
		strength += int(math.Round(optimizedRatio * 20))

		clusters[topic] = &TopicCluster{
			Topic:        topic,
			PageCount:    count,
			AvgWordCount: avgWords,
			Keywords:     tokenize(topic),
			Strength:     strength,
		}
	}
	return clusters
}

func coverage(main, comp map[string]*TopicCluster) TopicalCoverage {
	union := map[string]struct{}{}
	shared := 0
	for t := range main {
		union[t] = struct{}{}
	}
	for t := range comp {
		if _, ok := union[t]; ok {
			shared++
		}
		union[t] = struct{}{}
	}

	score := 100
	if len(union) > 0 {
		score = int(math.Round(float64(len(main)) / float64(len(union)) * 100))
	}
	return TopicalCoverage{
		MainTopics:       len(main),
		CompetitorTopics: len(comp),
		SharedTopics:     shared,
		CoverageScore:    score,
	}
}

// missingTopics lists strong competitor topics absent from the main site,
// collapsing near-duplicate phrasings so one real gap is not reported five
// times.
func missingTopics(main, comp map[string]*TopicCluster, opts Options) []TopicCluster {
	var candidates []*TopicCluster
	for topic, cluster := range comp {
		if _, covered := main[topic]; covered {
			continue
		}
		if cluster.Strength >= opts.MinMissingTopicStrength {
			candidates = append(candidates, cluster)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Strength == candidates[j].Strength {
			return candidates[i].Topic < candidates[j].Topic
		}
		return candidates[i].Strength > candidates[j].Strength
	})

	var out []TopicCluster
	for _, c := range candidates {
		if len(out) >= opts.MaxMissingTopics {
			break
		}
		dup := false
		for _, kept := range out {
			if topicsOverlap(c.Topic, kept.Topic, opts.TopicOverlapDedup) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, *c)
		}
	}
	return out
}

// topicsOverlap reports near-duplicate topic phrases: word-set Jaccard above
// the threshold or substring containment either way.
func topicsOverlap(a, b string, threshold float64) bool {
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	setA, setB := wordSet(a), wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return false
	}
	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter)/float64(union) > threshold
}

type keywordAgg struct {
	pages        int
	densityTotal float64
}

func aggregateKeywords(pages []*extractor.PageRecord) map[string]*keywordAgg {
	byKeyword := map[string]*keywordAgg{}
	for _, page := range pages {
		for _, stat := range page.KeywordDensity {
			a := byKeyword[stat.Keyword]
			if a == nil {
				a = &keywordAgg{}
				byKeyword[stat.Keyword] = a
			}
			a.pages++
			a.densityTotal += stat.Density
		}
	}
	return byKeyword
}

// keywordGaps scores competitor-only keywords as opportunities.
func keywordGaps(mainPages, competitorPages []*extractor.PageRecord) []KeywordGapEntry {
	mainKW := aggregateKeywords(mainPages)
	compKW := aggregateKeywords(competitorPages)

	var entries []KeywordGapEntry
	for keyword, agg := range compKW {
		if _, targeted := mainKW[keyword]; targeted {
			continue
		}
		avgDensity := agg.densityTotal / float64(agg.pages)

		opportunity := agg.pages * 2
		if opportunity > 6 {
			opportunity = 6
		}
		switch {
		case avgDensity >= 0.5 && avgDensity <= 2:
			opportunity += 3
		case avgDensity > 0:
			opportunity++
		}
		if agg.pages >= 2 && avgDensity >= 1 {
			opportunity++
		}
		if opportunity > 10 {
			opportunity = 10
		}

		entries = append(entries, KeywordGapEntry{
			Keyword:         keyword,
			CompetitorPages: agg.pages,
			MainPages:       0,
			AvgDensity:      math.Round(avgDensity*100) / 100,
			Difficulty:      estimateDifficulty(keyword, avgDensity),
			Opportunity:     opportunity,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Opportunity == entries[j].Opportunity {
			return entries[i].Keyword < entries[j].Keyword
		}
		return entries[i].Opportunity > entries[j].Opportunity
	})
	return entries
}

// estimateDifficulty: long phrases are easy to target, short head terms with
// heavy competitor density are hard.
func estimateDifficulty(keyword string, avgDensity float64) string {
	words := len(strings.Fields(keyword))
	switch {
	case words >= 4:
		return DifficultyLow
	case words == 3:
		return DifficultyMedium
	case avgDensity >= 1.5:
		return DifficultyHigh
	default:
		return DifficultyMedium
	}
}

func topOpportunities(entries []KeywordGapEntry, limit int) []KeywordGapEntry {
	if len(entries) <= limit {
		return entries
	}
	return entries[:limit]
}

// volumeGaps compares page counts per fixed content area using
// keyword-in-URL/title heuristics. Only areas where the competitor is ahead
// are reported.
func volumeGaps(mainPages, competitorPages []*extractor.PageRecord, opts Options) []VolumeGap {
	countArea := func(pages []*extractor.PageRecord, area string) int {
		needle := strings.ReplaceAll(area, "-", " ")
		count := 0
		for _, page := range pages {
			urlLower := strings.ToLower(page.URL)
			titleLower := strings.ToLower(page.Title)
			if strings.Contains(urlLower, area) || strings.Contains(titleLower, needle) {
				count++
			}
		}
		return count
	}

	var gaps []VolumeGap
	for _, area := range contentAreas {
		mainCount := countArea(mainPages, area)
		compCount := countArea(competitorPages, area)
		gap := compCount - mainCount
		if gap <= 0 {
			continue
		}
		opportunity := OpportunityLow
		switch {
		case gap >= opts.VolumeGapHigh:
			opportunity = OpportunityHigh
		case gap >= opts.VolumeGapMedium:
			opportunity = OpportunityMedium
		}
		gaps = append(gaps, VolumeGap{
			Area:            area,
			MainPages:       mainCount,
			CompetitorPages: compCount,
			Gap:             gap,
			Opportunity:     opportunity,
		})
	}
	return gaps
}

type siteMetrics struct {
	avgWordCount    float64
	altCoverage     float64
	avgInternalLink float64
	headingUsage    float64
}

func measure(pages []*extractor.PageRecord) siteMetrics {
	if len(pages) == 0 {
		return siteMetrics{}
	}
	var words, links, withHeadings int
	var imagesTotal, imagesWithAlt int
	for _, page := range pages {
		words += page.WordCount
		links += len(page.InternalLinks)
		if len(page.Headings) > 0 {
			withHeadings++
		}
		for _, img := range page.Images {
			imagesTotal++
			if img.Alt != "" {
				imagesWithAlt++
			}
		}
	}
	n := float64(len(pages))
	m := siteMetrics{
		avgWordCount:    float64(words) / n,
		avgInternalLink: float64(links) / n,
		headingUsage:    float64(withHeadings) / n * 100,
	}
	if imagesTotal > 0 {
		m.altCoverage = float64(imagesWithAlt) / float64(imagesTotal) * 100
	}
	return m
}

// underOptimized emits an area whenever the competitor beats the main site by
// the configured margin on a quality metric.
func underOptimized(mainPages, competitorPages []*extractor.PageRecord, opts Options) []UnderOptimizedArea {
	main := measure(mainPages)
	comp := measure(competitorPages)

	var areas []UnderOptimizedArea
	if comp.avgWordCount > main.avgWordCount*opts.WordCountGapFactor && comp.avgWordCount > 0 {
		areas = append(areas, UnderOptimizedArea{
			Metric:          "average word count",
			MainValue:       round1(main.avgWordCount),
			CompetitorValue: round1(comp.avgWordCount),
			Recommendation:  "expand thin pages with substantive content",
		})
	}
	if comp.altCoverage > main.altCoverage+opts.AltCoverageGapPoints {
		areas = append(areas, UnderOptimizedArea{
			Metric:          "image alt-text coverage",
			MainValue:       round1(main.altCoverage),
			CompetitorValue: round1(comp.altCoverage),
			Recommendation:  "add descriptive alt text to images",
		})
	}
	if comp.avgInternalLink > main.avgInternalLink*opts.InternalLinkGapFactor && comp.avgInternalLink > 0 {
		areas = append(areas, UnderOptimizedArea{
			Metric:          "average internal links",
			MainValue:       round1(main.avgInternalLink),
			CompetitorValue: round1(comp.avgInternalLink),
			Recommendation:  "strengthen internal linking between related pages",
		})
	}
	if comp.headingUsage > main.headingUsage+opts.HeadingUsageGapPoints {
		areas = append(areas, UnderOptimizedArea{
			Metric:          "heading usage rate",
			MainValue:       round1(main.headingUsage),
			CompetitorValue: round1(comp.headingUsage),
			Recommendation:  "structure page content with headings",
		})
	}
	return areas
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "to": {}, "in": {}, "a": {}, "for": {}, "is": {}, "on": {},
	"with": {}, "as": {}, "by": {}, "at": {}, "from": {}, "that": {}, "this": {}, "it": {},
	"an": {}, "be": {}, "or": {}, "are": {}, "was": {}, "your": {}, "you": {}, "we": {}, "our": {},
	"how": {}, "what": {}, "why": {}, "when": {}, "best": {}, "top": {},
}

func isStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	return fields
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range tokenize(s) {
		set[w] = struct{}{}
	}
	return set
}
