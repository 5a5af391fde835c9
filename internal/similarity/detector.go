// Package similarity finds duplicated content across pages with a tiered
// matcher: exact normalization first, then fuzzy string metrics, then
// semantic word-and-phrase overlap. It is pure computation over its inputs
// and safe for concurrent use.
package similarity

import (
	"math"
	"strings"
	"unicode"
)

// ContentItem is one unit of page content (a title, heading or paragraph)
// eligible for duplication analysis.
type ContentItem struct {
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Duplication types reported in groups.
const (
	TypeExact       = "exact"
	TypeFuzzy       = "fuzzy"
	TypeSemantic    = "semantic"
	TypeTemplate    = "template"
	TypeIntent      = "intent"
	TypeBoilerplate = "boilerplate"
)

// Impact levels, a monotonic function of group size.
const (
	ImpactCritical = "Critical"
	ImpactHigh     = "High"
	ImpactMedium   = "Medium"
	ImpactLow      = "Low"
)

// DuplicateGroup is a cluster of content judged similar enough to be one SEO
// issue. URLs always has at least two entries.
type DuplicateGroup struct {
	Content             string   `json:"content"`
	URLs                []string `json:"urls"`
	SimilarityScore     int      `json:"similarityScore"`
	ImpactLevel         string   `json:"impactLevel"`
	DuplicationType     string   `json:"duplicationType"`
	RootCause           string   `json:"rootCause"`
	ImprovementStrategy string   `json:"improvementStrategy"`
}

// Options tune the detector thresholds.
type Options struct {
	MinContentLength  int
	FuzzyThreshold    int
	SemanticThreshold int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		MinContentLength:  10,
		FuzzyThreshold:    85,
		SemanticThreshold: 75,
	}
}

// Stats reports how many groups each tier produced.
type Stats struct {
	ItemsAnalyzed  int `json:"itemsAnalyzed"`
	ExactGroups    int `json:"exactGroups"`
	FuzzyGroups    int `json:"fuzzyGroups"`
	SemanticGroups int `json:"semanticGroups"`
}

// Result is the detector output. Singleton groups are never included.
type Result struct {
	DuplicateGroups []DuplicateGroup `json:"duplicateGroups"`
	DuplicateCount  int              `json:"duplicateCount"`
	Stats           Stats            `json:"stats"`
}

// DetectDuplicates runs the three tiers over items. Items already claimed by
// an earlier tier are not reconsidered by later ones.
func DetectDuplicates(items []ContentItem, opts Options) *Result {
	if opts.MinContentLength == 0 {
		opts.MinContentLength = 10
	}
	if opts.FuzzyThreshold == 0 {
		opts.FuzzyThreshold = 85
	}
	if opts.SemanticThreshold == 0 {
		opts.SemanticThreshold = 75
	}

	var eligible []ContentItem
	for _, item := range items {
		if len(item.Content) >= opts.MinContentLength {
			eligible = append(eligible, item)
		}
	}

	result := &Result{}
	result.Stats.ItemsAnalyzed = len(eligible)

	grouped := make([]bool, len(eligible))

	exact := exactTier(eligible, grouped)
	result.Stats.ExactGroups = len(exact)
	result.DuplicateGroups = append(result.DuplicateGroups, exact...)

	fuzzy := clusterTier(eligible, grouped, opts.FuzzyThreshold, TypeFuzzy, fuzzyScore)
	result.Stats.FuzzyGroups = len(fuzzy)
	result.DuplicateGroups = append(result.DuplicateGroups, fuzzy...)

	semantic := clusterTier(eligible, grouped, opts.SemanticThreshold, TypeSemantic, semanticScore)
	result.Stats.SemanticGroups = len(semantic)
	result.DuplicateGroups = append(result.DuplicateGroups, semantic...)

	result.DuplicateCount = len(result.DuplicateGroups)
	return result
}

// exactTier groups items whose normalized form is byte-identical.
func exactTier(items []ContentItem, grouped []bool) []DuplicateGroup {
	byKey := map[string][]int{}
	for i, item := range items {
		key := normalizeExact(item.Content)
		byKey[key] = append(byKey[key], i)
	}

	var groups []DuplicateGroup
	for _, members := range byKey {
		urls := uniqueURLs(items, members)
		if len(urls) < 2 {
			continue
		}
		for _, i := range members {
			grouped[i] = true
		}
		groups = append(groups, DuplicateGroup{
			Content:             items[members[0]].Content,
			URLs:                urls,
			SimilarityScore:     100,
			ImpactLevel:         impactLevel(len(urls)),
			DuplicationType:     TypeExact,
			RootCause:           "identical content reused across pages",
			ImprovementStrategy: "rewrite each page's copy so it is unique to that page",
		})
	}
	return groups
}

// fuzzyScore is the tier-2 weighted combination of string metrics.
func fuzzyScore(a, b string) int {
	score := 0.5*float64(levenshteinSimilarity(a, b)) +
		0.3*float64(jaccardWordSimilarity(a, b)) +
		0.2*float64(lengthRatioSimilarity(a, b))
	return int(math.Round(score))
}

// semanticScore is the tier-3 weighted combination of word, structure and
// keyphrase overlap.
func semanticScore(a, b string) int {
	score := 0.4*float64(jaccardWordSimilarity(a, b)) +
		0.2*float64(structuralPatternSimilarity(a, b)) +
		0.4*float64(keyphraseSimilarity(a, b))
	return int(math.Round(score))
}

// clusterTier grows a cluster greedily from each ungrouped seed: any
// ungrouped item scoring at or above the threshold against the seed joins.
// This is single-link clustering, not clique verification; borderline chains
// may join a cluster through the seed alone. That approximation is
// deliberate, it keeps the tier quadratic instead of cubic.
func clusterTier(items []ContentItem, grouped []bool, threshold int, dupType string, score func(a, b string) int) []DuplicateGroup {
	var groups []DuplicateGroup
	for i := range items {
		if grouped[i] {
			continue
		}
		members := []int{i}
		scoreSum := 0
		for j := i + 1; j < len(items); j++ {
			if grouped[j] {
				continue
			}
			s := score(items[i].Content, items[j].Content)
			if s >= threshold {
				members = append(members, j)
				scoreSum += s
			}
		}
		if len(members) < 2 {
			continue
		}
		urls := uniqueURLs(items, members)
		if len(urls) < 2 {
			continue
		}
		for _, m := range members {
			grouped[m] = true
		}
		groups = append(groups, DuplicateGroup{
			Content:             items[i].Content,
			URLs:                urls,
			SimilarityScore:     scoreSum / (len(members) - 1),
			ImpactLevel:         impactLevel(len(urls)),
			DuplicationType:     dupType,
			RootCause:           "near-identical content variants across pages",
			ImprovementStrategy: "differentiate the variants or consolidate them under one canonical page",
		})
	}
	return groups
}

// normalizeExact case-folds, strips punctuation and collapses whitespace so
// surface-level differences do not defeat exact matching.
func normalizeExact(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func impactLevel(size int) string {
	switch {
	case size >= 10:
		return ImpactCritical
	case size >= 5:
		return ImpactHigh
	case size >= 3:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

func uniqueURLs(items []ContentItem, members []int) []string {
	seen := map[string]struct{}{}
	var urls []string
	for _, i := range members {
		u := items[i].URL
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
