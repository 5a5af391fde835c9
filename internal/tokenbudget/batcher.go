// Package tokenbudget partitions content into completion-call-sized batches
// under a token ceiling. It is pure data partitioning with no network
// dependency.
package tokenbudget

import (
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/go-scripts/seoscan/internal/similarity"
)

// Complexity selects how large a single completion request may grow.
type Complexity string

const (
	ComplexityHigh   Complexity = "high"
	ComplexityMedium Complexity = "medium"
	ComplexityLow    Complexity = "low"
)

const reservedTokens = 500

// Budget is the input-token ceiling for one completion call.
type Budget struct {
	MaxInputTokens  int
	ReservedTokens  int
	AvailableTokens int
}

// NewBudget derives the usable token budget for a content complexity tier.
func NewBudget(c Complexity) Budget {
	maxInput := 4000
	switch c {
	case ComplexityHigh:
		maxInput = 6000
	case ComplexityLow:
		maxInput = 2000
	}
	return Budget{
		MaxInputTokens:  maxInput,
		ReservedTokens:  reservedTokens,
		AvailableTokens: maxInput - reservedTokens,
	}
}

// Batch is one completion-call-sized slice of content.
type Batch struct {
	Items           []similarity.ContentItem `json:"items"`
	EstimatedTokens int                      `json:"estimatedTokens"`
	Priority        int                      `json:"priority"`
	ContentType     string                   `json:"contentType"`
}

// Options tune batch construction.
type Options struct {
	// BatchSize force-closes a batch at this many items regardless of token
	// usage. Zero means 20.
	BatchSize int
	// PrioritySort orders items by the priority heuristic before packing.
	PrioritySort bool
}

// EstimateTokens approximates the token count of a string as
// ceil(len/4) * 1.2, rounded up. This is a coarse chars-per-token proxy, not
// a real tokenizer; a precise tokenizer could be substituted without changing
// the batching contract.
func EstimateTokens(s string) int {
	chars := float64(len(s))
	return int(math.Ceil(math.Ceil(chars/4) * 1.2))
}

// CreateBatches greedily bin-packs items under budget.AvailableTokens. A
// batch closes when the next item would overflow it, or when it reaches
// BatchSize items. An item that alone exceeds the budget is still emitted as
// its own batch so no content is ever dropped.
func CreateBatches(items []similarity.ContentItem, contentType string, budget Budget, opts Options) []Batch {
	if len(items) == 0 {
		return nil
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}

	ordered := items
	if opts.PrioritySort {
		ordered = sortByPriority(items, contentType)
	}

	var batches []Batch
	current := Batch{ContentType: contentType}

	flush := func() {
		if len(current.Items) > 0 {
			batches = append(batches, current)
			current = Batch{ContentType: contentType}
		}
	}

	for _, item := range ordered {
		tokens := EstimateTokens(item.Content)

		if len(current.Items) > 0 && current.EstimatedTokens+tokens > budget.AvailableTokens {
			flush()
		}

		current.Items = append(current.Items, item)
		current.EstimatedTokens += tokens

		if len(current.Items) >= opts.BatchSize {
			flush()
		}
	}
	flush()

	for i := range batches {
		batches[i].Priority = len(batches) - i
	}
	return batches
}

var contentTypeWeights = map[string]int{
	"title":           10,
	"metaDescription": 8,
	"heading":         6,
	"paragraph":       4,
}

var boostedPathSegments = []string{"home", "about", "contact"}

// sortByPriority orders items so the most valuable content is analyzed
// first: weighted by content type, boosted for key pages, and boosted again
// when the same content recurs in the input (a likely duplicate).
func sortByPriority(items []similarity.ContentItem, contentType string) []similarity.ContentItem {
	occurrences := map[string]int{}
	for _, item := range items {
		occurrences[item.Content]++
	}

	type scored struct {
		item  similarity.ContentItem
		score int
	}
	list := make([]scored, len(items))
	for i, item := range items {
		score := contentTypeWeights[contentType]
		if u, err := url.Parse(item.URL); err == nil {
			path := strings.ToLower(u.Path)
			if path == "" || path == "/" {
				score += 3
			} else {
				for _, seg := range boostedPathSegments {
					if strings.Contains(path, seg) {
						score += 3
						break
					}
				}
			}
		}
		if occurrences[item.Content] > 1 {
			score += 5
		}
		list[i] = scored{item: item, score: score}
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].score > list[j].score
	})

	out := make([]similarity.ContentItem, len(items))
	for i, s := range list {
		out[i] = s.item
	}
	return out
}
